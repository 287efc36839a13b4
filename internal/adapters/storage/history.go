package storage

// history.go: curvas de precio de hoteles entre partidas.
//
// Estrategia:
//   - `games`: una fila por partida; `complete` vale 0 mientras solo hay
//     checkpoints y 1 cuando la partida se guardó.
//   - `curves`: una fila por (partida, hotel) con los nueve asks por minuto.
//   - Los checkpoints que no cambiaron desde el anterior no se escriben.
//   - Prune al arrancar: partidas incompletas de más de una semana, restos de
//     ejecuciones que murieron sin guardar.

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/tacbot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
    id         TEXT PRIMARY KEY,
    started_at DATETIME NOT NULL,
    saved_at   DATETIME NOT NULL,
    complete   INTEGER  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS curves (
    game_id   TEXT    NOT NULL REFERENCES games(id) ON DELETE CASCADE,
    day       INTEGER NOT NULL,
    grade     INTEGER NOT NULL,
    closed_on INTEGER NOT NULL DEFAULT 0,
    p0 REAL NOT NULL DEFAULT 0, p1 REAL NOT NULL DEFAULT 0, p2 REAL NOT NULL DEFAULT 0,
    p3 REAL NOT NULL DEFAULT 0, p4 REAL NOT NULL DEFAULT 0, p5 REAL NOT NULL DEFAULT 0,
    p6 REAL NOT NULL DEFAULT 0, p7 REAL NOT NULL DEFAULT 0, p8 REAL NOT NULL DEFAULT 0,
    PRIMARY KEY (game_id, day, grade)
);

CREATE INDEX IF NOT EXISTS idx_games_started ON games(started_at);
`

const retentionIncomplete = 7 * 24 * time.Hour

// HistoryStore implementa ports.HistoryStore sobre SQLite (pure Go, sin CGo).
type HistoryStore struct {
	db *sql.DB

	mu         sync.Mutex
	checkpoint map[string]map[domain.Good]domain.PriceCurve // game ID → últimas curvas escritas
}

// NewHistoryStore abre (o crea) la base de datos en path y limpia partidas
// incompletas antiguas.
func NewHistoryStore(path string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewHistoryStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // un solo escritor
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewHistoryStore: apply schema: %w", err)
	}

	s := &HistoryStore{
		db:         db,
		checkpoint: make(map[string]map[domain.Good]domain.PriceCurve),
	}
	if n, err := s.pruneIncomplete(context.Background()); err != nil {
		slog.Warn("storage: prune", "err", err)
	} else if n > 0 {
		slog.Info("storage: pruned incomplete games", "games", n)
	}
	return s, nil
}

// Load devuelve las partidas completas, la más antigua primero.
func (s *HistoryStore) Load(ctx context.Context) ([]domain.GameRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.started_at, c.day, c.grade, c.closed_on,
		       c.p0, c.p1, c.p2, c.p3, c.p4, c.p5, c.p6, c.p7, c.p8
		FROM games g
		JOIN curves c ON c.game_id = g.id
		WHERE g.complete = 1
		ORDER BY g.started_at, g.id
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.Load: query: %w", err)
	}
	defer rows.Close()

	var games []domain.GameRecord
	index := make(map[string]int)
	for rows.Next() {
		var (
			id        string
			startedAt time.Time
			day       int
			grade     uint8
			curve     domain.PriceCurve
		)
		p := &curve.Prices
		if err := rows.Scan(&id, &startedAt, &day, &grade, &curve.ClosedOn,
			&p[0], &p[1], &p[2], &p[3], &p[4], &p[5], &p[6], &p[7], &p[8],
		); err != nil {
			return nil, fmt.Errorf("storage.Load: scan row: %w", err)
		}
		g, err := domain.HotelGood(day, domain.Grade(grade))
		if err != nil {
			return nil, fmt.Errorf("storage.Load: game %s: %w", id, err)
		}
		i, ok := index[id]
		if !ok {
			i = len(games)
			index[id] = i
			games = append(games, domain.NewGameRecord(id, startedAt.UTC()))
		}
		games[i].Curves[g] = curve
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.Load: rows: %w", err)
	}
	return games, nil
}

// Checkpoint guarda la partida en curso. Si las curvas no cambiaron no escribe.
func (s *HistoryStore) Checkpoint(ctx context.Context, rec domain.GameRecord) error {
	s.mu.Lock()
	prev, ok := s.checkpoint[rec.ID]
	s.mu.Unlock()
	if ok && maps.Equal(prev, rec.Curves) {
		return nil
	}
	if err := s.write(ctx, rec, false); err != nil {
		return fmt.Errorf("storage.Checkpoint: %w", err)
	}
	s.mu.Lock()
	s.checkpoint[rec.ID] = maps.Clone(rec.Curves)
	s.mu.Unlock()
	return nil
}

// Save guarda la partida y la marca como completa.
func (s *HistoryStore) Save(ctx context.Context, rec domain.GameRecord) error {
	if err := s.write(ctx, rec, true); err != nil {
		return fmt.Errorf("storage.Save: %w", err)
	}
	s.forget(rec.ID)
	return nil
}

// Discard borra una partida y sus curvas.
func (s *HistoryStore) Discard(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM curves WHERE game_id = ?`, id); err != nil {
		return fmt.Errorf("storage.Discard: delete curves %s: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE id = ?`, id); err != nil {
		return fmt.Errorf("storage.Discard: delete game %s: %w", id, err)
	}
	s.forget(id)
	return nil
}

// Close cierra la conexión a la base de datos.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func (s *HistoryStore) write(ctx context.Context, rec domain.GameRecord, complete bool) error {
	if rec.ID == "" {
		return fmt.Errorf("write: empty game id")
	}
	done := 0
	if complete {
		done = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO games (id, started_at, saved_at, complete) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			saved_at = excluded.saved_at,
			complete = excluded.complete
	`, rec.ID, rec.StartedAt.UTC(), time.Now().UTC(), done); err != nil {
		return fmt.Errorf("upsert game %s: %w", rec.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO curves (game_id, day, grade, closed_on, p0, p1, p2, p3, p4, p5, p6, p7, p8)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id, day, grade) DO UPDATE SET
			closed_on = excluded.closed_on,
			p0 = excluded.p0, p1 = excluded.p1, p2 = excluded.p2,
			p3 = excluded.p3, p4 = excluded.p4, p5 = excluded.p5,
			p6 = excluded.p6, p7 = excluded.p7, p8 = excluded.p8
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for g, c := range rec.Curves {
		p := c.Prices
		if _, err := stmt.ExecContext(ctx, rec.ID, g.Day, int(g.Grade()), c.ClosedOn,
			p[0], p[1], p[2], p[3], p[4], p[5], p[6], p[7], p[8],
		); err != nil {
			return fmt.Errorf("upsert curve %s %s: %w", rec.ID, g, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *HistoryStore) forget(id string) {
	s.mu.Lock()
	delete(s.checkpoint, id)
	s.mu.Unlock()
}

// pruneIncomplete elimina las partidas incompletas más viejas que
// retentionIncomplete y devuelve cuántas borró.
func (s *HistoryStore) pruneIncomplete(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-retentionIncomplete)
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM curves WHERE game_id IN (SELECT id FROM games WHERE complete = 0 AND saved_at < ?)`, cutoff,
	); err != nil {
		return 0, fmt.Errorf("storage.pruneIncomplete: curves: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE complete = 0 AND saved_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("storage.pruneIncomplete: games: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("storage.pruneIncomplete: rows affected: %w", err)
	}
	return n, nil
}
