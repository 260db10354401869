package storage

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"devchat/internal/errors"
	"devchat/internal/graph"
	"devchat/internal/vector"
)

// historyKeep bounds the scan_history table.
const historyKeep = 50

// snapshotArchive is the serialized form of one snapshot: flat node, edge
// and vector lists that a pair of builders can reassemble.
type snapshotArchive struct {
	Generation   uint64                   `json:"generation"`
	GenerationID string                   `json:"generationId"`
	BuiltAt      time.Time                `json:"builtAt"`
	Nodes        []*graph.Node            `json:"nodes"`
	Edges        []graph.Edge             `json:"edges,omitempty"`
	Vectors      []vector.Record          `json:"vectors,omitempty"`
	Unresolved   []graph.UnresolvedImport `json:"unresolved,omitempty"`
}

func encodeSnapshot(s *graph.Snapshot) ([]byte, error) {
	arc := snapshotArchive{
		Generation:   s.Generation,
		GenerationID: s.GenerationID,
		BuiltAt:      s.BuiltAt,
		Nodes:        make([]*graph.Node, 0, s.NodeCount()),
		Edges:        s.Edges(),
		Vectors:      s.Vectors().Records(),
		Unresolved:   s.UnresolvedImports(),
	}
	for _, id := range s.NodeIDs() {
		arc.Nodes = append(arc.Nodes, s.GetNode(id))
	}

	raw, err := json.Marshal(arc)
	if err != nil {
		return nil, err
	}

	var compressed bytes.Buffer
	enc, err := zstd.NewWriter(&compressed)
	if err != nil {
		return nil, err
	}
	if _, err := enc.Write(raw); err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return compressed.Bytes(), nil
}

func decodeSnapshot(blob []byte) (*graph.Snapshot, error) {
	dec, err := zstd.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}

	var arc snapshotArchive
	if err := json.Unmarshal(raw, &arc); err != nil {
		return nil, err
	}

	gb := graph.NewBuilder()
	for _, n := range arc.Nodes {
		gb.AddNode(n)
	}
	for _, e := range arc.Edges {
		gb.AddEdge(e)
	}
	for _, u := range arc.Unresolved {
		gb.AddUnresolvedImport(u)
	}

	vb := vector.NewBuilder()
	for _, r := range arc.Vectors {
		if err := vb.Upsert(r.NodeID, r.Embedding, r.Summary); err != nil {
			return nil, err
		}
	}

	snap, _ := gb.Build(arc.Generation, arc.GenerationID, arc.BuiltAt, vb.Build())
	return snap, nil
}

// SaveSnapshot archives the snapshot as the single stored generation,
// replacing any prior one. Satisfies the indexer's Archiver.
func (db *DB) SaveSnapshot(s *graph.Snapshot) error {
	blob, err := encodeSnapshot(s)
	if err != nil {
		return errors.Wrap(errors.StorageError, "encode snapshot", err)
	}
	return db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM snapshots"); err != nil {
			return errors.Wrap(errors.StorageError, "clear prior snapshot", err)
		}
		_, err := tx.Exec(`
			INSERT INTO snapshots
				(generation, generation_id, built_at, node_count, edge_count, vector_count, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			int64(s.Generation), s.GenerationID,
			s.BuiltAt.UTC().Format(time.RFC3339Nano),
			s.NodeCount(), s.EdgeCount(), s.Vectors().Len(), blob,
		)
		if err != nil {
			return errors.Wrap(errors.StorageError, "insert snapshot", err)
		}
		return nil
	})
}

// LoadSnapshot returns the archived snapshot, or (nil, nil) when none is
// stored. A corrupt archive is an error; callers fall back to a full scan.
func (db *DB) LoadSnapshot() (*graph.Snapshot, error) {
	var blob []byte
	err := db.conn.QueryRow(`
		SELECT payload FROM snapshots ORDER BY generation DESC LIMIT 1
	`).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.StorageError, "read snapshot", err)
	}
	snap, err := decodeSnapshot(blob)
	if err != nil {
		return nil, errors.Wrap(errors.StorageError, "decode snapshot", err)
	}
	return snap, nil
}

// ScanRecord is one row of scan history.
type ScanRecord struct {
	ScanType     string    `json:"scanType"`
	Generation   uint64    `json:"generation"`
	FilesScanned int       `json:"filesScanned"`
	Nodes        int       `json:"nodes"`
	Edges        int       `json:"edges"`
	ErrorCount   int       `json:"errorCount"`
	Degraded     bool      `json:"degraded,omitempty"`
	DurationMs   int64     `json:"durationMs"`
	CreatedAt    time.Time `json:"createdAt"`
}

// RecordScan appends one scan to the history, trimming old rows.
func (db *DB) RecordScan(rec ScanRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO scan_history
				(scan_type, generation, files_scanned, nodes, edges, error_count, degraded, duration_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ScanType, int64(rec.Generation), rec.FilesScanned,
			rec.Nodes, rec.Edges, rec.ErrorCount, boolToInt(rec.Degraded),
			rec.DurationMs, rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return errors.Wrap(errors.StorageError, "insert scan record", err)
		}
		_, err = tx.Exec(`
			DELETE FROM scan_history WHERE id NOT IN (
				SELECT id FROM scan_history ORDER BY id DESC LIMIT ?
			)`, historyKeep)
		if err != nil {
			return errors.Wrap(errors.StorageError, "trim scan history", err)
		}
		return nil
	})
}

// ScanHistory returns up to limit records, newest first.
func (db *DB) ScanHistory(limit int) ([]ScanRecord, error) {
	if limit <= 0 || limit > historyKeep {
		limit = historyKeep
	}
	rows, err := db.conn.Query(`
		SELECT scan_type, generation, files_scanned, nodes, edges, error_count, degraded, duration_ms, created_at
		FROM scan_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(errors.StorageError, "read scan history", err)
	}
	defer rows.Close()

	var out []ScanRecord
	for rows.Next() {
		var rec ScanRecord
		var generation int64
		var degraded int
		var createdAt string
		if err := rows.Scan(&rec.ScanType, &generation, &rec.FilesScanned,
			&rec.Nodes, &rec.Edges, &rec.ErrorCount, &degraded,
			&rec.DurationMs, &createdAt); err != nil {
			return nil, errors.Wrap(errors.StorageError, "scan history row", err)
		}
		rec.Generation = uint64(generation)
		rec.Degraded = degraded != 0
		if t, perr := time.Parse(time.RFC3339Nano, createdAt); perr == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.StorageError, "scan history rows", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
