package store

import (
	"database/sql"

	"github.com/ayusman/handcricket/internal/match"
)

// BallRepository reads the ball-by-ball log.
type BallRepository struct {
	db *sql.DB
}

// Balls returns the ball repository for this store.
func (s *Store) Balls() *BallRepository {
	return &BallRepository{db: s.db}
}

// ListByMatch returns a match's balls in play order.
func (r *BallRepository) ListByMatch(matchID string) ([]match.Ball, error) {
	rows, err := r.db.Query(
		`SELECT innings, player_move, opponent_move, user_batting, runs, is_out
		 FROM balls WHERE match_id = ? ORDER BY sequence`,
		matchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balls []match.Ball
	for rows.Next() {
		var b match.Ball
		if err := rows.Scan(&b.Innings, &b.PlayerMove, &b.OpponentMove, &b.UserBatting, &b.Runs, &b.Out); err != nil {
			return nil, err
		}
		balls = append(balls, b)
	}
	return balls, rows.Err()
}

// MoveFrequency counts how often the player has shown each move across all
// stored matches. Index 0 is unused.
func (r *BallRepository) MoveFrequency() ([7]int, error) {
	var freq [7]int
	rows, err := r.db.Query(`SELECT player_move, COUNT(*) FROM balls GROUP BY player_move`)
	if err != nil {
		return freq, err
	}
	defer rows.Close()

	for rows.Next() {
		var move, count int
		if err := rows.Scan(&move, &count); err != nil {
			return freq, err
		}
		if move >= 1 && move <= 6 {
			freq[move] = count
		}
	}
	return freq, rows.Err()
}

func appendBalls(tx *sql.Tx, matchID string, balls []match.Ball) error {
	stmt, err := tx.Prepare(
		`INSERT INTO balls (match_id, sequence, innings, player_move, opponent_move, user_batting, runs, is_out)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, b := range balls {
		if _, err := stmt.Exec(matchID, i, b.Innings, int(b.PlayerMove), int(b.OpponentMove), b.UserBatting, b.Runs, b.Out); err != nil {
			return err
		}
	}
	return nil
}
