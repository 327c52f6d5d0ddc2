// Package analyzerpb holds the wire-level gRPC service descriptors for the
// analyzer's two RPC surfaces: the public ReportMaster service (spec §6)
// and the internal TableStore service used by internal/kv/remotekv to talk
// to an out-of-process key-value backend.
//
// Both services are hand-registered in the style of a protoc-gen-go-grpc
// run, but without a .proto compiler in this environment every method
// exchanges google.golang.org/protobuf/types/known/wrapperspb.BytesValue —
// a real, already-generated protobuf message shipped with the protobuf
// module — so the transport stays genuinely protobuf-wire-compatible. The
// application-level request/response envelopes (defined next to their
// callers in internal/service and internal/kv/remotekv) are encoded into
// that BytesValue with encoding/gob. See DESIGN.md for why hand-writing a
// real generated .pb.go file was not attempted.
package analyzerpb
