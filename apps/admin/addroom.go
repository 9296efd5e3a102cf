package main

import (
	"context"
	"time"

	"github.com/DailyDoseOfWezs/Schedulink/core"
	"github.com/DailyDoseOfWezs/Schedulink/core/room"
)

// addRoom registers a new available room with the next room number.
func (cli *commandLine) addRoom(name, building string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	building = core.CleanString(building)
	if building == "" {
		building = room.DefaultBuilding
	}

	maxNumber, err := cli.roomRepo.MaxRoomNumber(ctx)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = cli.roomRepo.CreateRoom(ctx, room.Room{
		Name:        name,
		Number:      maxNumber + 1,
		Building:    building,
		QRCode:      room.GenerateQRCode(name, now),
		IsAvailable: true,
		LastUpdated: now,
	})
	return err
}
