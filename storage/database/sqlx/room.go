package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/DailyDoseOfWezs/Schedulink/core/room"
)

type roomRow struct {
	ID          string      `db:"id"`
	Name        string      `db:"name"`
	Number      int         `db:"number"`
	Building    string      `db:"building"`
	QRCode      string      `db:"qr_code"`
	IsAvailable bool        `db:"is_available"`
	Occupant    null.String `db:"occupant"`
	Section     null.String `db:"section"`
	TimeIn      null.Time   `db:"time_in"`
	TimeOut     null.Time   `db:"time_out"`
	LastUpdated null.Time   `db:"last_updated"`
}

func unpackRoom(row roomRow) room.Room {
	return room.Room{
		ID:          row.ID,
		Name:        row.Name,
		Number:      row.Number,
		Building:    row.Building,
		QRCode:      row.QRCode,
		IsAvailable: row.IsAvailable,
		Occupant:    row.Occupant.String,
		Section:     row.Section.String,
		TimeIn:      row.TimeIn.Ptr(),
		TimeOut:     row.TimeOut.Ptr(),
		LastUpdated: row.LastUpdated.Time,
	}
}

type roomRepository struct {
	db *sqlx.DB
}

var _ room.Repository = (*roomRepository)(nil) // interface compliance check

func NewRoomRepository(db *sqlx.DB) *roomRepository {
	return &roomRepository{db: db}
}

func (repo roomRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return room.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo roomRepository) CreateRoom(ctx context.Context, rm room.Room) (room.Room, error) {
	rm.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO room (id, name, number, building, qr_code, is_available, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rm.ID, rm.Name, rm.Number, rm.Building, rm.QRCode, rm.IsAvailable, rm.LastUpdated.UTC(),
	)
	if err != nil {
		return room.Room{}, errors.Wrap(err, "inserting room")
	}
	return rm, nil
}

func (repo roomRepository) GetRoomByID(ctx context.Context, id string) (room.Room, error) {
	var row roomRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM room WHERE id = $1`, id); err != nil {
		return room.Room{}, repo.trapNoRowsErr(err, "finding room")
	}
	return unpackRoom(row), nil
}

func (repo roomRepository) QueryRooms(ctx context.Context) ([]room.Room, error) {
	var rows []roomRow
	err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM room ORDER BY building, name`)
	if err != nil {
		return nil, errors.Wrap(err, "querying rooms")
	}
	rooms := make([]room.Room, 0, len(rows))
	for _, row := range rows {
		rooms = append(rooms, unpackRoom(row))
	}
	return rooms, nil
}

func (repo roomRepository) OccupyRoom(ctx context.Context, id, occupant, section string, at time.Time) (room.Room, error) {
	var row roomRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE room SET
			is_available = FALSE,
			occupant = $1,
			section = $2,
			time_in = $3,
			time_out = NULL,
			last_updated = $3
		WHERE id = $4
		RETURNING *`,
		occupant, section, at.UTC(), id,
	)
	if err != nil {
		return room.Room{}, repo.trapNoRowsErr(err, "occupying room")
	}
	return unpackRoom(row), nil
}

// ReleaseRoom keeps time_in so the pair still describes the last session.
func (repo roomRepository) ReleaseRoom(ctx context.Context, id string, at time.Time) (room.Room, error) {
	var row roomRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE room SET
			is_available = TRUE,
			occupant = NULL,
			section = NULL,
			time_out = $1,
			last_updated = $1
		WHERE id = $2
		RETURNING *`,
		at.UTC(), id,
	)
	if err != nil {
		return room.Room{}, repo.trapNoRowsErr(err, "releasing room")
	}
	return unpackRoom(row), nil
}

func (repo roomRepository) RenameRoom(ctx context.Context, id, name, building string) (room.Room, error) {
	var row roomRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE room SET name = $1, building = $2, last_updated = $3
		WHERE id = $4
		RETURNING *`,
		name, building, time.Now().UTC(), id,
	)
	if err != nil {
		return room.Room{}, repo.trapNoRowsErr(err, "renaming room")
	}
	return unpackRoom(row), nil
}

func (repo roomRepository) MaxRoomNumber(ctx context.Context) (int, error) {
	var max int
	if err := repo.db.GetContext(ctx, &max, `SELECT COALESCE(MAX(number), 0) FROM room`); err != nil {
		return 0, errors.Wrap(err, "finding max room number")
	}
	return max, nil
}
