package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/DailyDoseOfWezs/Schedulink/core/room"
)

type roomRepository struct {
	db *DB
}

var _ room.Repository = (*roomRepository)(nil)

func NewRoomRepository(db *DB) *roomRepository {
	return &roomRepository{db: db}
}

func (repo *roomRepository) CreateRoom(_ context.Context, rm room.Room) (room.Room, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rm.ID = uuid.New().String()
	repo.db.rooms[rm.ID] = &rm
	return rm, nil
}

func (repo *roomRepository) GetRoomByID(_ context.Context, id string) (room.Room, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rm, ok := repo.db.rooms[id]; ok {
		return *rm, nil
	}
	return room.Room{}, room.ErrNotFound
}

func (repo *roomRepository) QueryRooms(_ context.Context) ([]room.Room, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rooms := make([]room.Room, 0, len(repo.db.rooms))
	for _, rm := range repo.db.rooms {
		rooms = append(rooms, *rm)
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Building != rooms[j].Building {
			return rooms[i].Building < rooms[j].Building
		}
		return rooms[i].Name < rooms[j].Name
	})
	return rooms, nil
}

func (repo *roomRepository) OccupyRoom(_ context.Context, id, occupant, section string, at time.Time) (room.Room, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rm, ok := repo.db.rooms[id]
	if !ok {
		return room.Room{}, room.ErrNotFound
	}
	rm.IsAvailable = false
	rm.Occupant = occupant
	rm.Section = section
	timeIn := at
	rm.TimeIn = &timeIn
	rm.TimeOut = nil
	rm.LastUpdated = at
	return *rm, nil
}

func (repo *roomRepository) ReleaseRoom(_ context.Context, id string, at time.Time) (room.Room, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rm, ok := repo.db.rooms[id]
	if !ok {
		return room.Room{}, room.ErrNotFound
	}
	rm.IsAvailable = true
	rm.Occupant = ""
	rm.Section = ""
	timeOut := at
	rm.TimeOut = &timeOut
	rm.LastUpdated = at
	return *rm, nil
}

func (repo *roomRepository) RenameRoom(_ context.Context, id, name, building string) (room.Room, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rm, ok := repo.db.rooms[id]
	if !ok {
		return room.Room{}, room.ErrNotFound
	}
	rm.Name = name
	rm.Building = building
	rm.LastUpdated = time.Now().UTC()
	return *rm, nil
}

func (repo *roomRepository) MaxRoomNumber(_ context.Context) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	max := 0
	for _, rm := range repo.db.rooms {
		if rm.Number > max {
			max = rm.Number
		}
	}
	return max, nil
}
