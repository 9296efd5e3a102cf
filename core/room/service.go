package room

import (
	"context"
	"errors"
	"time"

	"github.com/DailyDoseOfWezs/Schedulink/core/user"
)

var (
	// errors
	ErrNotFound  = errors.New("room not found")
	ErrForbidden = errors.New("permission denied")
)

type (
	Repository interface {
		CreateRoom(ctx context.Context, rm Room) (Room, error)
		GetRoomByID(ctx context.Context, id string) (Room, error)
		// QueryRooms returns all rooms ordered by (building, name).
		QueryRooms(ctx context.Context) ([]Room, error)
		// OccupyRoom sets IsAvailable=false, Occupant, Section, TimeIn=at and
		// clears TimeOut; LastUpdated is bumped. Last write wins.
		OccupyRoom(ctx context.Context, id, occupant, section string, at time.Time) (Room, error)
		// ReleaseRoom sets IsAvailable=true, clears Occupant/Section and sets
		// TimeOut=at; TimeIn is preserved. LastUpdated is bumped.
		ReleaseRoom(ctx context.Context, id string, at time.Time) (Room, error)
		RenameRoom(ctx context.Context, id, name, building string) (Room, error)
		MaxRoomNumber(ctx context.Context) (int, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, actor user.User, nr NewRoom) (Room, error)
		Get(ctx context.Context, id string) (Room, error)
		Query(ctx context.Context) ([]Room, error)
		Occupy(ctx context.Context, actor user.User, id, occupant, section string) (Room, error)
		Release(ctx context.Context, actor user.User, id string) (Room, error)
		Rename(ctx context.Context, actor user.User, id string, rr RenameRoom) (Room, error)
	}

	service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository) ServiceInterface {
	return &service{repo: repo}
}

// Create allocates a new Room in available state with the next room number
// and a generated token.
func (svc *service) Create(ctx context.Context, actor user.User, nr NewRoom) (Room, error) {
	if !actor.IsTeacher() {
		return Room{}, ErrForbidden
	}

	maxNumber, err := svc.repo.MaxRoomNumber(ctx)
	if err != nil {
		return Room{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateRoom(ctx, Room{
		Name:        nr.Name,
		Number:      maxNumber + 1,
		Building:    nr.Building,
		QRCode:      GenerateQRCode(nr.Name, now),
		IsAvailable: true,
		LastUpdated: now,
	})
}

func (svc *service) Get(ctx context.Context, id string) (Room, error) {
	return svc.repo.GetRoomByID(ctx, id)
}

func (svc *service) Query(ctx context.Context) ([]Room, error) {
	return svc.repo.QueryRooms(ctx)
}

// Occupy marks the Room as in use. The UI only offers this on available
// rooms; the engine itself does not reject an already-occupied room, the
// last write wins. An empty occupant defaults to the actor's name.
func (svc *service) Occupy(ctx context.Context, actor user.User, id, occupant, section string) (Room, error) {
	if !actor.IsTeacher() {
		return Room{}, ErrForbidden
	}
	if occupant == "" {
		occupant = actor.Name
	}
	return svc.repo.OccupyRoom(ctx, id, occupant, section, time.Now().UTC())
}

// Release marks the Room as available again, clearing the occupancy metadata
// and recording the time out.
func (svc *service) Release(ctx context.Context, actor user.User, id string) (Room, error) {
	if !actor.IsTeacher() {
		return Room{}, ErrForbidden
	}
	return svc.repo.ReleaseRoom(ctx, id, time.Now().UTC())
}

func (svc *service) Rename(ctx context.Context, actor user.User, id string, rr RenameRoom) (Room, error) {
	if !actor.IsTeacher() {
		return Room{}, ErrForbidden
	}
	return svc.repo.RenameRoom(ctx, id, rr.Name, rr.Building)
}
