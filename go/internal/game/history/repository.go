// Package history stores finished matches. Only the host records, once per
// match, so a room produces one row per game no matter how many peers
// watched it.
package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrMatchNotFound is returned when no match has the requested id
var ErrMatchNotFound = errors.New("match not found")

// Match is one finished game
type Match struct {
	ID          uuid.UUID
	RoomID      string
	PlayerOneID string
	PlayerTwoID string
	Moves       []int
	// Winner is 1 or 2, or 0 for a draw
	Winner     int
	FinishedAt time.Time
}

// MatchID derives a stable id from the match contents, so recording the same
// match twice is a no-op
func MatchID(roomID, playerOneID, playerTwoID string, moves []int) uuid.UUID {
	var b strings.Builder
	b.WriteString(roomID)
	b.WriteByte('|')
	b.WriteString(playerOneID)
	b.WriteByte('|')
	b.WriteString(playerTwoID)
	b.WriteByte('|')
	for i, m := range moves {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(m))
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(b.String()))
}

// Repository persists matches
type Repository interface {
	// SaveMatch stores m and reports whether it was new
	SaveMatch(ctx context.Context, m Match) (bool, error)
	GetMatch(ctx context.Context, id uuid.UUID) (*Match, error)
	ListMatches(ctx context.Context, roomID string, limit int) ([]Match, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS matches (
    id            UUID PRIMARY KEY,
    room_id       TEXT        NOT NULL,
    player_one_id TEXT        NOT NULL,
    player_two_id TEXT        NOT NULL,
    moves         INTEGER[]   NOT NULL,
    winner        SMALLINT    NOT NULL,
    finished_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS matches_room_finished_idx ON matches (room_id, finished_at DESC);
`

// PostgresRepository stores matches in Postgres
type PostgresRepository struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository creates a repository on an open pool
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the matches table if it does not exist
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create matches schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) SaveMatch(ctx context.Context, m Match) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
        INSERT INTO matches (
          id, room_id, player_one_id, player_two_id, moves, winner, finished_at
        ) VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (id) DO NOTHING
    `, m.ID, m.RoomID, m.PlayerOneID, m.PlayerTwoID, toInt32(m.Moves), int16(m.Winner), m.FinishedAt)
	if err != nil {
		return false, fmt.Errorf("insert match: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) GetMatch(ctx context.Context, id uuid.UUID) (*Match, error) {
	row := r.pool.QueryRow(ctx, `
        SELECT id, room_id, player_one_id, player_two_id, moves, winner, finished_at
        FROM matches
        WHERE id = $1
    `, id)

	m, err := scanMatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) ListMatches(ctx context.Context, roomID string, limit int) ([]Match, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, room_id, player_one_id, player_two_id, moves, winner, finished_at
        FROM matches
        WHERE room_id = $1
        ORDER BY finished_at DESC
        LIMIT $2
    `, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}

func scanMatch(row pgx.Row) (*Match, error) {
	var (
		m      Match
		moves  []int32
		winner int16
	)
	if err := row.Scan(&m.ID, &m.RoomID, &m.PlayerOneID, &m.PlayerTwoID, &moves, &winner, &m.FinishedAt); err != nil {
		return nil, err
	}
	m.Moves = make([]int, len(moves))
	for i, v := range moves {
		m.Moves[i] = int(v)
	}
	m.Winner = int(winner)
	return &m, nil
}

func toInt32(moves []int) []int32 {
	out := make([]int32, len(moves))
	for i, v := range moves {
		out[i] = int32(v)
	}
	return out
}
