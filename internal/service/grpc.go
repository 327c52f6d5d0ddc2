package service

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/reportstore"
	"github.com/shuffler/reportmaster/pkg/analyzerpb"
)

// GRPCServer adapts a Service to analyzerpb.ReportMasterServer, gob-encoding
// the application-level request/response envelopes below into the
// wrapperspb.BytesValue every method exchanges (see pkg/analyzerpb's
// package doc for why: no .proto compiler is available to generate a real
// typed service in this environment).
type GRPCServer struct {
	analyzerpb.UnimplementedReportMasterServer
	svc *Service
}

// NewGRPCServer wraps svc for serving over analyzerpb.ReportMaster.
func NewGRPCServer(svc *Service) *GRPCServer {
	return &GRPCServer{svc: svc}
}

type startReportRequest struct {
	CustomerID     uint32
	ProjectID      uint32
	ReportConfigID uint32
	FirstDayIndex  idutil.DayIndex
	LastDayIndex   idutil.DayIndex
}

type startReportResponse struct {
	ReportIDString string
}

type getReportRequest struct {
	ReportIDString string
}

type getReportResponse struct {
	Metadata Metadata
	Rows     []reportstore.Row
}

type queryReportsRequest struct {
	CustomerID         uint32
	ProjectID          uint32
	ReportConfigID     uint32
	FirstTimestamp     int64
	LimitTimestampExcl int64
}

type queryReportsBatch struct {
	Metadata []reportstore.Metadata
}

func decodeEnvelope(in *wrapperspb.BytesValue, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(in.GetValue())).Decode(v); err != nil {
		return fmt.Errorf("%w: decode request: %v", errs.InvalidArgument, err)
	}
	return nil
}

func encodeEnvelope(v interface{}) (*wrapperspb.BytesValue, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("%w: encode response: %v", errs.OperationFailed, err)
	}
	return wrapperspb.Bytes(buf.Bytes()), nil
}

// StartReport implements analyzerpb.ReportMasterServer.
func (g *GRPCServer) StartReport(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req startReportRequest
	if err := decodeEnvelope(in, &req); err != nil {
		return nil, err
	}
	idString, err := g.svc.StartReportByConfigID(ctx, req.CustomerID, req.ProjectID, req.ReportConfigID, req.FirstDayIndex, req.LastDayIndex)
	if err != nil {
		return nil, err
	}
	return encodeEnvelope(startReportResponse{ReportIDString: idString})
}

// GetReport implements analyzerpb.ReportMasterServer.
func (g *GRPCServer) GetReport(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	var req getReportRequest
	if err := decodeEnvelope(in, &req); err != nil {
		return nil, err
	}
	metadata, rows, err := g.svc.GetReport(ctx, req.ReportIDString)
	if err != nil {
		return nil, err
	}
	return encodeEnvelope(getReportResponse{Metadata: metadata, Rows: rows})
}

// QueryReports implements analyzerpb.ReportMasterServer, sending one stream
// message per page the Service emits.
func (g *GRPCServer) QueryReports(in *wrapperspb.BytesValue, stream analyzerpb.ReportMaster_QueryReportsServer) error {
	var req queryReportsRequest
	if err := decodeEnvelope(in, &req); err != nil {
		return err
	}
	return g.svc.QueryReports(stream.Context(), req.CustomerID, req.ProjectID, req.ReportConfigID, req.FirstTimestamp, req.LimitTimestampExcl, func(batch []reportstore.Metadata) error {
		envelope, err := encodeEnvelope(queryReportsBatch{Metadata: batch})
		if err != nil {
			return err
		}
		return stream.Send(envelope)
	})
}
