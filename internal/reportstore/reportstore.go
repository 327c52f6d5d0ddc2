// Package reportstore implements the Report Store (spec §4.3): two typed
// tables (metadata, one row per report ID; rows, many per report ID), ID
// allocation, state transitions, time-range queries, and bulk writes, all
// layered over internal/kv.
package reportstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/kv"
)

// State is a report's position in its state machine (spec §3 invariant 3):
// WAITING_TO_START -> IN_PROGRESS -> {COMPLETED_SUCCESSFULLY | TERMINATED}.
type State uint8

const (
	WaitingToStart State = iota
	InProgress
	CompletedSuccessfully
	Terminated
)

func (s State) String() string {
	switch s {
	case WaitingToStart:
		return "WAITING_TO_START"
	case InProgress:
		return "IN_PROGRESS"
	case CompletedSuccessfully:
		return "COMPLETED_SUCCESSFULLY"
	case Terminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

func (s State) isTerminal() bool {
	return s == CompletedSuccessfully || s == Terminated
}

// InfoMessage is one entry of a report's append-only diagnostic log.
type InfoMessage struct {
	TimestampSeconds int64
	Message          string
}

// Metadata is the per-report-ID metadata row (spec §3 "Report metadata").
type Metadata struct {
	ID                idutil.ReportID
	State             State
	FirstDayIndex     idutil.DayIndex
	LastDayIndex      idutil.DayIndex
	ReportType        idutil.ReportType
	VariableIndices   []uint32
	OneOff            bool
	StartTimeSeconds  int64
	FinishTimeSeconds int64
	InfoMessages      []InfoMessage
}

// RowPayloadType tags which payload a Row carries; it must match the
// report's declared report_type (spec §4.3 add_report_rows).
type RowPayloadType uint8

const (
	RowHistogram RowPayloadType = iota
	RowJoint
	RowRawDump
)

func (t RowPayloadType) reportType() idutil.ReportType {
	switch t {
	case RowJoint:
		return idutil.ReportTypeJoint
	case RowRawDump:
		return idutil.ReportTypeRawDump
	default:
		return idutil.ReportTypeHistogram
	}
}

// HistogramPayload is one category's estimate for a HISTOGRAM report.
type HistogramPayload struct {
	Value         string
	CountEstimate float64
	StdError      float64
}

// JointPayload is one (value, value2) cell's estimate for a JOINT report.
type JointPayload struct {
	Value         string
	Value2        string
	CountEstimate float64
	StdError      float64
}

// RawDumpPayload is one unencoded observation projected by a RAW_DUMP
// report: a selected system-profile field subset plus the declared parts.
type RawDumpPayload struct {
	SystemProfile map[string]string
	Parts         map[string][]byte
}

// Row is one output row of a finished report (spec §3 "Report row").
// SystemProfile is the engine's diagnostic attachment of the client
// environment fingerprint the row's group was aggregated under (spec §4.5
// PerformAnalysis, last step); it is empty for rows not produced through
// the engine.
type Row struct {
	Type          RowPayloadType
	Histogram     HistogramPayload
	Joint         JointPayload
	RawDump       RawDumpPayload
	SystemProfile map[string]string
}

// maxRowsPerReport bounds a single report's row count (spec §3, §4.3
// get_report).
const maxRowsPerReport = 5000

const metadataColumn = "metadata"
const rowColumn = "row"

// Store is the Report Store.
type Store struct {
	kv  kv.Store
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for creation/start/finish
// timestamps. Tests use this to pin report IDs and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New wraps a kv.Store as a Report Store.
func New(store kv.Store, opts ...Option) *Store {
	s := &Store{kv: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.OperationFailed, err)
	}
	return buf.Bytes(), nil
}

func decodeGob(b []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errs.OperationFailed, err)
	}
	return nil
}

func (s *Store) writeMetadata(ctx context.Context, m Metadata) error {
	encoded, err := encodeGob(m)
	if err != nil {
		return err
	}
	key := idutil.PackReportMetadataKey(m.ID)
	return s.kv.WriteRow(ctx, kv.TableReportsMetadata, key, map[string][]byte{metadataColumn: encoded})
}

// GetMetadata returns the metadata row for id, or errs.NotFound.
func (s *Store) GetMetadata(ctx context.Context, id idutil.ReportID) (Metadata, error) {
	key := idutil.PackReportMetadataKey(id)
	row, err := s.kv.ReadRow(ctx, kv.TableReportsMetadata, key, nil)
	if err != nil {
		return Metadata{}, err
	}
	var m Metadata
	if err := decodeGob(row.Columns[metadataColumn], &m); err != nil {
		return Metadata{}, err
	}
	return m, nil
}

func (s *Store) metadataExists(ctx context.Context, id idutil.ReportID) (bool, error) {
	key := idutil.PackReportMetadataKey(id)
	_, err := s.kv.ReadRow(ctx, kv.TableReportsMetadata, key, []string{})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, errs.NotFound) {
		return false, nil
	}
	return false, err
}

// StartNewReport allocates creation_time_seconds and a random instance_id
// on id (which must already carry CustomerID/ProjectID/ReportConfigID and a
// zero SequenceNum), and writes metadata with state=IN_PROGRESS (spec §4.3).
func (s *Store) StartNewReport(ctx context.Context, id idutil.ReportID, firstDay, lastDay idutil.DayIndex, oneOff bool, reportType idutil.ReportType, variableIndices []uint32) (idutil.ReportID, error) {
	instanceID, err := idutil.RandomInstanceID()
	if err != nil {
		return idutil.ReportID{}, fmt.Errorf("%w: %v", errs.OperationFailed, err)
	}
	id.CreationTimeSeconds = s.now().Unix()
	id.InstanceID = instanceID
	id.SequenceNum = 0

	m := Metadata{
		ID:               id,
		State:            InProgress,
		FirstDayIndex:    firstDay,
		LastDayIndex:     lastDay,
		ReportType:       reportType,
		VariableIndices:  variableIndices,
		OneOff:           oneOff,
		StartTimeSeconds: s.now().Unix(),
	}
	if err := s.writeMetadata(ctx, m); err != nil {
		return idutil.ReportID{}, err
	}
	return id, nil
}

// CreateDependentReport derives a new report ID from parent by setting its
// sequence number, and writes metadata with state=WAITING_TO_START. Fails
// errs.AlreadyExists if the derived ID already has metadata (spec §4.3).
func (s *Store) CreateDependentReport(ctx context.Context, parent idutil.ReportID, sequenceNum uint32, reportType idutil.ReportType, variableIndices []uint32) (idutil.ReportID, error) {
	derived := parent
	derived.SequenceNum = sequenceNum

	exists, err := s.metadataExists(ctx, derived)
	if err != nil {
		return idutil.ReportID{}, err
	}
	if exists {
		return idutil.ReportID{}, fmt.Errorf("%w: report %s already has metadata", errs.AlreadyExists, derived)
	}

	m := Metadata{
		ID:              derived,
		State:           WaitingToStart,
		ReportType:      reportType,
		VariableIndices: variableIndices,
	}
	if err := s.writeMetadata(ctx, m); err != nil {
		return idutil.ReportID{}, err
	}
	return derived, nil
}

// StartDependentReport transitions id from WAITING_TO_START to IN_PROGRESS.
// Fails errs.PreconditionFailed otherwise (spec §4.3, §4.7).
func (s *Store) StartDependentReport(ctx context.Context, id idutil.ReportID) error {
	m, err := s.GetMetadata(ctx, id)
	if err != nil {
		return err
	}
	if m.State != WaitingToStart {
		return fmt.Errorf("%w: report %s is %s, not WAITING_TO_START", errs.PreconditionFailed, id, m.State)
	}
	m.State = InProgress
	m.StartTimeSeconds = s.now().Unix()
	return s.writeMetadata(ctx, m)
}

// EndReport sets id's terminal state and finish_time, appending an
// info_message when message is non-empty (spec §4.3).
func (s *Store) EndReport(ctx context.Context, id idutil.ReportID, success bool, message string) error {
	m, err := s.GetMetadata(ctx, id)
	if err != nil {
		return err
	}
	if success {
		m.State = CompletedSuccessfully
	} else {
		m.State = Terminated
	}
	m.FinishTimeSeconds = s.now().Unix()
	if message != "" {
		m.InfoMessages = append(m.InfoMessages, InfoMessage{TimestampSeconds: s.now().Unix(), Message: message})
	}
	return s.writeMetadata(ctx, m)
}

// AddReportRows requires report metadata to exist and be IN_PROGRESS, and
// every row's payload tag to match the metadata's report_type; writes rows
// in one batched call (spec §4.3).
func (s *Store) AddReportRows(ctx context.Context, id idutil.ReportID, rows []Row) error {
	m, err := s.GetMetadata(ctx, id)
	if err != nil {
		return err
	}
	if m.State != InProgress {
		return fmt.Errorf("%w: report %s is %s, not IN_PROGRESS", errs.PreconditionFailed, id, m.State)
	}
	kvRows := make([]kv.Row, 0, len(rows))
	for _, row := range rows {
		if row.Type.reportType() != m.ReportType {
			return fmt.Errorf("%w: row type %d does not match report_type %s", errs.InvalidArgument, row.Type, m.ReportType)
		}
		encoded, err := encodeGob(row)
		if err != nil {
			return err
		}
		suffix, err := idutil.RandomRowSuffix()
		if err != nil {
			return fmt.Errorf("%w: %v", errs.OperationFailed, err)
		}
		kvRows = append(kvRows, kv.Row{
			Key:     idutil.PackReportRowKey(id, suffix),
			Columns: map[string][]byte{rowColumn: encoded},
		})
	}
	if len(kvRows) == 0 {
		return nil
	}
	return s.kv.WriteRows(ctx, kv.TableReportsRows, kvRows)
}

// GetReport returns id's metadata, plus all rows iff state is
// COMPLETED_SUCCESSFULLY (spec §4.3).
func (s *Store) GetReport(ctx context.Context, id idutil.ReportID) (Metadata, []Row, error) {
	m, err := s.GetMetadata(ctx, id)
	if err != nil {
		return Metadata{}, nil, err
	}
	if m.State != CompletedSuccessfully {
		return m, nil, nil
	}
	prefix := idutil.ReportRowKeyPrefix(id)
	upper := idutil.ReportRowKeyUpperBound(id)
	result, err := s.kv.ReadRows(ctx, kv.TableReportsRows, prefix, true, append(upper, 0), nil, maxRowsPerReport+1)
	if err != nil {
		return Metadata{}, nil, err
	}
	if len(result.Rows) > maxRowsPerReport {
		return Metadata{}, nil, fmt.Errorf("%w: report %s has more than %d rows", errs.OperationFailed, id, maxRowsPerReport)
	}
	rows := make([]Row, 0, len(result.Rows))
	for _, kvRow := range result.Rows {
		var row Row
		if err := decodeGob(kvRow.Columns[rowColumn], &row); err != nil {
			return Metadata{}, nil, err
		}
		rows = append(rows, row)
	}
	return m, rows, nil
}

// QueryResult is the result of one QueryReports call.
type QueryResult struct {
	Metadata []Metadata
	// PaginationToken, when non-empty, is the base64-encoded row key of the
	// last row returned; it must not precede the interval's start key (spec
	// §4.3).
	PaginationToken string
}

// QueryReports scans report metadata for one report config within
// [intervalStartSeconds, intervalEndSecondsExclusive), paginated identically
// to the Observation Store (spec §4.3).
func (s *Store) QueryReports(ctx context.Context, customerID, projectID, reportConfigID uint32, intervalStartSeconds, intervalEndSecondsExclusive int64, maxResults int, paginationToken string) (QueryResult, error) {
	if maxResults <= 0 {
		return QueryResult{}, fmt.Errorf("%w: maxResults must be > 0, got %d", errs.InvalidArgument, maxResults)
	}
	rangeStart, limit := idutil.ReportMetadataTimeRangeBounds(customerID, projectID, reportConfigID, intervalStartSeconds, intervalEndSecondsExclusive)

	start := rangeStart
	inclusive := true
	if paginationToken != "" {
		token, err := base64.StdEncoding.DecodeString(paginationToken)
		if err != nil {
			return QueryResult{}, fmt.Errorf("%w: malformed pagination token", errs.InvalidArgument)
		}
		if bytes.Compare(token, rangeStart) < 0 {
			return QueryResult{}, fmt.Errorf("%w: pagination token precedes interval start", errs.InvalidArgument)
		}
		start = token
		inclusive = false
	}

	result, err := s.kv.ReadRows(ctx, kv.TableReportsMetadata, start, inclusive, limit, nil, maxResults)
	if err != nil {
		return QueryResult{}, err
	}
	out := QueryResult{Metadata: make([]Metadata, 0, len(result.Rows))}
	for _, row := range result.Rows {
		var m Metadata
		if err := decodeGob(row.Columns[metadataColumn], &m); err != nil {
			return QueryResult{}, err
		}
		out.Metadata = append(out.Metadata, m)
	}
	if result.MoreAvailable && len(result.Rows) > 0 {
		out.PaginationToken = base64.StdEncoding.EncodeToString(result.Rows[len(result.Rows)-1].Key)
	}
	return out, nil
}

// DeleteAllForReportConfig purges every report (metadata and rows) of one
// report config by key prefix on both tables.
func (s *Store) DeleteAllForReportConfig(ctx context.Context, customerID, projectID, reportConfigID uint32) error {
	prefix := idutil.ReportConfigPrefix(customerID, projectID, reportConfigID)
	if err := s.kv.DeleteRowsWithPrefix(ctx, kv.TableReportsMetadata, prefix); err != nil {
		return err
	}
	return s.kv.DeleteRowsWithPrefix(ctx, kv.TableReportsRows, prefix)
}

// IsTerminal reports whether state is a terminal state (spec §3 invariant 3).
func (s State) IsTerminal() bool {
	return s.isTerminal()
}
