package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Frame is one recorded tick. Control and Pinch are nil when the
// corresponding hand was not detected.
type Frame struct {
	Seq     int
	Offset  time.Duration // since the session start
	Mode    int           // tracking mode active for this tick
	Control *Point
	Pinch   *PointPair
}

// Point is a recorded pixel position.
type Point struct {
	X, Y float64
}

// PointPair holds the thumb and index fingertip positions of the scale hand.
type PointPair struct {
	Thumb, Index Point
}

// FrameRepository stores the frames of recorded sessions.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// Append inserts frames for a session in a single transaction.
func (r *FrameRepository) Append(sessionID string, frames []Frame) error {
	if len(frames) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO session_frames
		 (session_id, seq, offset_us, mode, control_x, control_y, thumb_x, thumb_y, index_x, index_y)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range frames {
		var cx, cy, thx, ty, ix, iy sql.NullFloat64
		if f.Control != nil {
			cx = sql.NullFloat64{Float64: f.Control.X, Valid: true}
			cy = sql.NullFloat64{Float64: f.Control.Y, Valid: true}
		}
		if f.Pinch != nil {
			thx = sql.NullFloat64{Float64: f.Pinch.Thumb.X, Valid: true}
			ty = sql.NullFloat64{Float64: f.Pinch.Thumb.Y, Valid: true}
			ix = sql.NullFloat64{Float64: f.Pinch.Index.X, Valid: true}
			iy = sql.NullFloat64{Float64: f.Pinch.Index.Y, Valid: true}
		}
		if _, err := stmt.Exec(sessionID, f.Seq, f.Offset.Microseconds(), f.Mode, cx, cy, thx, ty, ix, iy); err != nil {
			return fmt.Errorf("insert frame %d: %w", f.Seq, err)
		}
	}

	return tx.Commit()
}

// List returns the frames of a session in recording order.
func (r *FrameRepository) List(sessionID string) ([]Frame, error) {
	rows, err := r.db.Query(
		`SELECT seq, offset_us, mode, control_x, control_y, thumb_x, thumb_y, index_x, index_y
		 FROM session_frames
		 WHERE session_id = ?
		 ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []Frame
	for rows.Next() {
		var f Frame
		var offset int64
		var cx, cy, tx, ty, ix, iy sql.NullFloat64
		if err := rows.Scan(&f.Seq, &offset, &f.Mode, &cx, &cy, &tx, &ty, &ix, &iy); err != nil {
			return nil, err
		}
		f.Offset = time.Duration(offset) * time.Microsecond
		if cx.Valid && cy.Valid {
			f.Control = &Point{X: cx.Float64, Y: cy.Float64}
		}
		if tx.Valid && ty.Valid && ix.Valid && iy.Valid {
			f.Pinch = &PointPair{
				Thumb: Point{X: tx.Float64, Y: ty.Float64},
				Index: Point{X: ix.Float64, Y: iy.Float64},
			}
		}
		frames = append(frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}

// Count returns the number of frames recorded for a session.
func (r *FrameRepository) Count(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM session_frames WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
