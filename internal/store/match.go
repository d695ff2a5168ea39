package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/ayusman/handcricket/internal/match"
)

// Match is a stored match summary.
type Match struct {
	ID          string       `json:"id"`
	PlayerScore int          `json:"playerScore"`
	AIScore     int          `json:"aiScore"`
	BallsPlayed int          `json:"ballsPlayed"`
	Innings     int          `json:"innings"`
	Result      match.Result `json:"result"`
	FinishedAt  time.Time    `json:"finishedAt"`
	Balls       []match.Ball `json:"balls,omitempty"`
}

// Stats aggregates every stored match.
type Stats struct {
	Played       int     `json:"played"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Draws        int     `json:"draws"`
	HighestScore int     `json:"highestScore"`
	AverageScore float64 `json:"averageScore"`
	TotalBalls   int     `json:"totalBalls"`
}

// MatchRepository stores match summaries and their balls.
type MatchRepository struct {
	db *sql.DB
}

// Matches returns the match repository for this store.
func (s *Store) Matches() *MatchRepository {
	return &MatchRepository{db: s.db}
}

// Save stores a summary and its balls in one transaction.
func (r *MatchRepository) Save(sum *match.Summary) error {
	finished := sum.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO matches (id, player_score, ai_score, balls_played, innings, result, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sum.MatchID, sum.FinalPlayerScore, sum.FinalAIScore, sum.BallsPlayed, sum.Innings,
		string(sum.Result), finished.UTC(),
	)
	if err != nil {
		return err
	}

	if err := appendBalls(tx, sum.MatchID, sum.Balls); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByID retrieves a match and its balls.
func (r *MatchRepository) GetByID(id string) (*Match, error) {
	m := &Match{}
	var result string

	err := r.db.QueryRow(
		`SELECT id, player_score, ai_score, balls_played, innings, result, finished_at
		 FROM matches WHERE id = ?`,
		id,
	).Scan(&m.ID, &m.PlayerScore, &m.AIScore, &m.BallsPlayed, &m.Innings, &result, &m.FinishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	m.Result = match.Result(result)

	m.Balls, err = (&BallRepository{db: r.db}).ListByMatch(id)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// List returns the most recent matches first, without balls. A limit of zero
// or less returns every match.
func (r *MatchRepository) List(limit int) ([]*Match, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, player_score, ai_score, balls_played, innings, result, finished_at
		 FROM matches ORDER BY finished_at DESC, created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*Match
	for rows.Next() {
		m := &Match{}
		var result string
		if err := rows.Scan(&m.ID, &m.PlayerScore, &m.AIScore, &m.BallsPlayed, &m.Innings, &result, &m.FinishedAt); err != nil {
			return nil, err
		}
		m.Result = match.Result(result)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

// Stats aggregates results and scores over all matches.
func (r *MatchRepository) Stats() (*Stats, error) {
	st := &Stats{}
	err := r.db.QueryRow(
		`SELECT COUNT(*),
			COALESCE(SUM(result = 'player'), 0),
			COALESCE(SUM(result = 'ai'), 0),
			COALESCE(SUM(result = 'draw'), 0),
			COALESCE(MAX(player_score), 0),
			COALESCE(AVG(player_score), 0),
			COALESCE(SUM(balls_played), 0)
		 FROM matches`,
	).Scan(&st.Played, &st.Wins, &st.Losses, &st.Draws, &st.HighestScore, &st.AverageScore, &st.TotalBalls)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Delete removes a match and its balls.
func (r *MatchRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM matches WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
