// Package obsstore implements the Observation Store (spec §4.2): a typed
// view of observation rows keyed by (customer, project, metric, day_index,
// arrival_id), with paginated range scans by day-index and part-name
// projection. It is a thin layer over internal/kv — ingest itself (parsing
// and validating wire observations) is out of scope per spec §1.
package obsstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/gob"
	"fmt"

	"github.com/shuffler/reportmaster/internal/errs"
	"github.com/shuffler/reportmaster/internal/idutil"
	"github.com/shuffler/reportmaster/internal/kv"
)

// systemProfileColumn is the reserved column name carrying an observation's
// client-environment fingerprint (the original's Observation.system_profile
// field). It is not a metric part and is never subject to part-name
// projection: a query always gets it back alongside whichever parts it
// requested.
const systemProfileColumn = "__system_profile"

// Metadata identifies one observation row.
type Metadata struct {
	CustomerID uint32
	ProjectID  uint32
	MetricID   uint32
	DayIndex   idutil.DayIndex
	ArrivalID  uint32
}

// Observation is one persisted record: metadata, a bag of named,
// already-encoded parts, and the client system profile it was observed on.
// Parts are opaque bytes to this package; decoding them is
// internal/decoder's job.
type Observation struct {
	Metadata      Metadata
	Parts         map[string][]byte
	SystemProfile map[string]string
}

// Row is one observation returned by QueryObservations, with its part map
// already projected to the caller's requested part names.
type Row struct {
	Metadata      Metadata
	Parts         map[string][]byte
	SystemProfile map[string]string
}

// QueryResult is the result of one QueryObservations call.
type QueryResult struct {
	Rows []Row
	// PaginationToken, when non-empty, is an opaque token for the next
	// call's pagination_token argument. Callers must not fabricate or
	// inspect it (spec §4.2).
	PaginationToken string
}

// Store is the Observation Store.
type Store struct {
	kv kv.Store
}

// New wraps a kv.Store as an Observation Store.
func New(store kv.Store) *Store {
	return &Store{kv: store}
}

// columnsFor merges an observation's parts with its encoded system-profile
// column, without mutating the caller's Parts map.
func columnsFor(obs Observation) (map[string][]byte, error) {
	columns := make(map[string][]byte, len(obs.Parts)+1)
	for name, value := range obs.Parts {
		columns[name] = value
	}
	if len(obs.SystemProfile) > 0 {
		encoded, err := encodeProfile(obs.SystemProfile)
		if err != nil {
			return nil, err
		}
		columns[systemProfileColumn] = encoded
	}
	return columns, nil
}

func encodeProfile(profile map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(profile); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.OperationFailed, err)
	}
	return buf.Bytes(), nil
}

func decodeProfile(b []byte) (map[string]string, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var profile map[string]string
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.OperationFailed, err)
	}
	return profile, nil
}

// AddObservation writes one observation row.
func (s *Store) AddObservation(ctx context.Context, obs Observation) error {
	key := idutil.PackObservationKey(obs.Metadata.CustomerID, obs.Metadata.ProjectID, obs.Metadata.MetricID, obs.Metadata.DayIndex, obs.Metadata.ArrivalID)
	columns, err := columnsFor(obs)
	if err != nil {
		return err
	}
	return s.kv.WriteRow(ctx, kv.TableObservations, key, columns)
}

// AddObservationBatch writes many observation rows in one batched call.
func (s *Store) AddObservationBatch(ctx context.Context, observations []Observation) error {
	rows := make([]kv.Row, 0, len(observations))
	for _, obs := range observations {
		key := idutil.PackObservationKey(obs.Metadata.CustomerID, obs.Metadata.ProjectID, obs.Metadata.MetricID, obs.Metadata.DayIndex, obs.Metadata.ArrivalID)
		columns, err := columnsFor(obs)
		if err != nil {
			return err
		}
		rows = append(rows, kv.Row{Key: key, Columns: columns})
	}
	return s.kv.WriteRows(ctx, kv.TableObservations, rows)
}

func encodeToken(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

func decodeToken(token string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed pagination token", errs.InvalidArgument)
	}
	return key, nil
}

// QueryObservations scans [startDay, endDay] (inclusive on both ends) for
// one metric, projecting only the named parts (empty parts means all).
// paginationToken, when non-empty, is the token returned by a previous call
// and resumes the scan exclusive of the row it names.
func (s *Store) QueryObservations(ctx context.Context, customerID, projectID, metricID uint32, startDay, endDay idutil.DayIndex, parts []string, maxResults int, paginationToken string) (QueryResult, error) {
	if maxResults <= 0 {
		return QueryResult{}, fmt.Errorf("%w: maxResults must be > 0, got %d", errs.InvalidArgument, maxResults)
	}
	rangeStart, limit := idutil.ObservationDayRangeBounds(customerID, projectID, metricID, startDay, endDay)

	start := rangeStart
	inclusive := true
	if paginationToken != "" {
		token, err := decodeToken(paginationToken)
		if err != nil {
			return QueryResult{}, err
		}
		start = token
		inclusive = false
	}

	var columns []string // nil means "all columns" to kv.Store
	if len(parts) > 0 {
		columns = append(append([]string{}, parts...), systemProfileColumn)
	}

	result, err := s.kv.ReadRows(ctx, kv.TableObservations, start, inclusive, limit, columns, maxResults)
	if err != nil {
		return QueryResult{}, err
	}

	out := QueryResult{Rows: make([]Row, 0, len(result.Rows))}
	for _, row := range result.Rows {
		profile, err := decodeProfile(row.Columns[systemProfileColumn])
		if err != nil {
			return QueryResult{}, err
		}
		delete(row.Columns, systemProfileColumn)
		out.Rows = append(out.Rows, Row{Metadata: metadataFromKey(row.Key), Parts: row.Columns, SystemProfile: profile})
	}
	if result.MoreAvailable && len(result.Rows) > 0 {
		out.PaginationToken = encodeToken(result.Rows[len(result.Rows)-1].Key)
	}
	return out, nil
}

// DeleteAllForMetric purges every observation of one metric by key prefix
// (invariant 1).
func (s *Store) DeleteAllForMetric(ctx context.Context, customerID, projectID, metricID uint32) error {
	prefix := idutil.ObservationMetricPrefix(customerID, projectID, metricID)
	return s.kv.DeleteRowsWithPrefix(ctx, kv.TableObservations, prefix)
}

// metadataFromKey parses the five fixed-width fields back out of a row key
// produced by idutil.PackObservationKey.
func metadataFromKey(key []byte) Metadata {
	var customerID, projectID, metricID, day, arrivalID uint32
	_, _ = fmt.Sscanf(string(key), "%010d:%010d:%010d:%010d:%010d", &customerID, &projectID, &metricID, &day, &arrivalID)
	return Metadata{
		CustomerID: customerID,
		ProjectID:  projectID,
		MetricID:   metricID,
		DayIndex:   idutil.DayIndex(day),
		ArrivalID:  arrivalID,
	}
}
