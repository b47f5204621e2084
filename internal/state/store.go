package state

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const storeSchema = `
CREATE TABLE IF NOT EXISTS episodes (
	episode_id   TEXT PRIMARY KEY,
	assignment   INTEGER NOT NULL,
	code         INTEGER NOT NULL,
	seed         INTEGER NOT NULL,
	started_at   TEXT NOT NULL,
	finished_at  TEXT,
	solved       INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS step_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	episode_id   TEXT NOT NULL,
	step         INTEGER NOT NULL,
	action       INTEGER NOT NULL,
	reward       INTEGER NOT NULL,
	done         INTEGER NOT NULL,
	nodes        BLOB,
	mask         BLOB,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (episode_id) REFERENCES episodes(episode_id)
);

CREATE TABLE IF NOT EXISTS active_episode (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	episode_id   TEXT NOT NULL,
	FOREIGN KEY (episode_id) REFERENCES episodes(episode_id)
);
`

// #endregion schema

// #region store-struct

// Store persists episodes and their step logs in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor

// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region begin-episode

// BeginEpisode inserts a new episode row and points active_episode at it.
func (s *Store) BeginEpisode(assignment, code int32, seed int64) (EpisodeRow, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.Begin()
	if err != nil {
		return EpisodeRow{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO episodes (episode_id, assignment, code, seed, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, assignment, code, seed, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return EpisodeRow{}, fmt.Errorf("insert episode: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_episode (id, episode_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET episode_id = excluded.episode_id`,
		id,
	)
	if err != nil {
		return EpisodeRow{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return EpisodeRow{}, fmt.Errorf("commit: %w", err)
	}

	return EpisodeRow{
		EpisodeID:  id,
		Assignment: assignment,
		Code:       code,
		Seed:       seed,
		StartedAt:  now,
	}, nil
}

// #endregion begin-episode

// #region finish-episode

// FinishEpisode stamps the episode finished with its solved flag.
func (s *Store) FinishEpisode(episodeID string, solved bool) error {
	res, err := s.db.Exec(
		`UPDATE episodes SET finished_at = ?, solved = ? WHERE episode_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), boolToInt(solved), episodeID,
	)
	if err != nil {
		return fmt.Errorf("finish episode: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish episode: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("episode %s not found", episodeID)
	}
	return nil
}

// #endregion finish-episode

// #region log-step

// LogStep appends one step to the episode's log.
func (s *Store) LogStep(episodeID string, step int, action, reward int32, done bool, nodes, mask []int32) error {
	_, err := s.db.Exec(
		`INSERT INTO step_log (episode_id, step, action, reward, done, nodes, mask, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		episodeID, step, action, reward, boolToInt(done),
		encodeInts(nodes), encodeInts(mask),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log step: %w", err)
	}
	return nil
}

// #endregion log-step

// #region current-episode

// CurrentEpisode reads the active episode pointer.
func (s *Store) CurrentEpisode() (EpisodeRow, error) {
	var id string
	err := s.db.QueryRow(`SELECT episode_id FROM active_episode WHERE id = 1`).Scan(&id)
	if err != nil {
		return EpisodeRow{}, fmt.Errorf("get active episode: %w", err)
	}
	return s.GetEpisode(id)
}

// #endregion current-episode

// #region get-episode

// GetEpisode retrieves one episode by ID.
func (s *Store) GetEpisode(episodeID string) (EpisodeRow, error) {
	row := s.db.QueryRow(
		`SELECT e.episode_id, e.assignment, e.code, e.seed, e.started_at, e.finished_at, e.solved,
		        (SELECT COUNT(*) FROM step_log sl WHERE sl.episode_id = e.episode_id)
		 FROM episodes e WHERE e.episode_id = ?`, episodeID,
	)
	rec, err := scanEpisode(row)
	if err != nil {
		return EpisodeRow{}, fmt.Errorf("get episode %s: %w", episodeID, err)
	}
	return rec, nil
}

// #endregion get-episode

// #region list-episodes

// ListEpisodes returns the most recent episodes, newest first.
func (s *Store) ListEpisodes(limit int) ([]EpisodeRow, error) {
	rows, err := s.db.Query(
		`SELECT e.episode_id, e.assignment, e.code, e.seed, e.started_at, e.finished_at, e.solved,
		        (SELECT COUNT(*) FROM step_log sl WHERE sl.episode_id = e.episode_id)
		 FROM episodes e ORDER BY e.started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list episodes: %w", err)
	}
	defer rows.Close()

	var records []EpisodeRow
	for rows.Next() {
		rec, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-episodes

// #region steps

// Steps returns the step log of one episode in step order.
func (s *Store) Steps(episodeID string) ([]StepRow, error) {
	rows, err := s.db.Query(
		`SELECT episode_id, step, action, reward, done, nodes, mask, created_at
		 FROM step_log WHERE episode_id = ? ORDER BY step ASC`, episodeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []StepRow
	for rows.Next() {
		var sr StepRow
		var done int
		var nodesBlob, maskBlob []byte
		var createdStr string
		if err := rows.Scan(&sr.EpisodeID, &sr.Step, &sr.Action, &sr.Reward, &done, &nodesBlob, &maskBlob, &createdStr); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		sr.Done = done != 0
		sr.Nodes = decodeInts(nodesBlob)
		sr.Mask = decodeInts(maskBlob)
		sr.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		steps = append(steps, sr)
	}
	return steps, rows.Err()
}

// #endregion steps

// #region scan-helpers

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEpisode(row rowScanner) (EpisodeRow, error) {
	var rec EpisodeRow
	var startedStr string
	var finishedStr sql.NullString
	var solved int
	if err := row.Scan(&rec.EpisodeID, &rec.Assignment, &rec.Code, &rec.Seed, &startedStr, &finishedStr, &solved, &rec.NumSteps); err != nil {
		return EpisodeRow{}, err
	}
	rec.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
	if finishedStr.Valid {
		rec.FinishedAt, _ = time.Parse(time.RFC3339Nano, finishedStr.String)
	}
	rec.Solved = solved != 0
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion scan-helpers

// #region int-encoding

func encodeInts(v []int32) []byte {
	buf := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(x))
	}
	return buf
}

func decodeInts(b []byte) []int32 {
	v := make([]int32, len(b)/4)
	for i := range v {
		v[i] = int32(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

// #endregion int-encoding
