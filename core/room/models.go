package room

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/DailyDoseOfWezs/Schedulink/core"
)

const DefaultBuilding = "COMLAB BUILDING"

var spaceRegex = regexp.MustCompile(`\s+`)

// GenerateQRCode derives a room token from its name and the current time.
// Uniqueness is not cryptographically guaranteed; collisions are improbable
// at millisecond granularity.
func GenerateQRCode(name string, now time.Time) string {
	slug := spaceRegex.ReplaceAllString(strings.ToUpper(strings.TrimSpace(name)), "-")
	return slug + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}

// Room is a physical lab/room on the shared occupancy board.
// IsAvailable=false implies Occupant and Section are set and TimeOut cleared;
// IsAvailable=true implies Occupant/Section cleared and TimeOut set to the
// transition time. LastUpdated changes on every mutation and is the basis for
// staleness display.
type Room struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Number      int        `json:"number"`
	Building    string     `json:"building"`
	QRCode      string     `json:"qr_code"`
	IsAvailable bool       `json:"is_available"`
	Occupant    string     `json:"occupant,omitempty"`
	Section     string     `json:"section,omitempty"`
	TimeIn      *time.Time `json:"time_in,omitempty"`
	TimeOut     *time.Time `json:"time_out,omitempty"`
	LastUpdated time.Time  `json:"last_updated"` // UTC
}

// NewRoom contains information needed to create a new Room.
type NewRoom struct {
	Name     string `json:"name" validate:"required"`
	Building string `json:"building"`
}

func (nr *NewRoom) Validate(validate *validator.Validate) error {
	nr.Name = core.CleanString(nr.Name)
	nr.Building = core.CleanString(nr.Building)
	if nr.Building == "" {
		nr.Building = DefaultBuilding
	}
	return validate.Struct(nr)
}

// OccupyRoom marks a Room as in use by a section.
type OccupyRoom struct {
	Occupant string `json:"occupant"`
	Section  string `json:"section" validate:"required"`
}

func (or *OccupyRoom) Validate(validate *validator.Validate) error {
	or.Occupant = core.CleanString(or.Occupant)
	or.Section = core.CleanString(or.Section)
	return validate.Struct(or)
}

// RenameRoom is a metadata-only mutation; occupancy state is untouched.
type RenameRoom struct {
	Name     string `json:"name" validate:"required"`
	Building string `json:"building" validate:"required"`
}

func (rr *RenameRoom) Validate(validate *validator.Validate) error {
	rr.Name = core.CleanString(rr.Name)
	rr.Building = core.CleanString(rr.Building)
	return validate.Struct(rr)
}

// BuildingGroup is the view-level grouping of rooms per building,
// applied after fetch.
type BuildingGroup struct {
	Building string `json:"building"`
	Rooms    []Room `json:"rooms"`
}

// GroupByBuilding splits rooms into per-building groups, preserving the
// incoming (building, name) order.
func GroupByBuilding(rooms []Room) []BuildingGroup {
	var groups []BuildingGroup
	idx := make(map[string]int)
	for _, rm := range rooms {
		i, ok := idx[rm.Building]
		if !ok {
			i = len(groups)
			idx[rm.Building] = i
			groups = append(groups, BuildingGroup{Building: rm.Building})
		}
		groups[i].Rooms = append(groups[i].Rooms, rm)
	}
	return groups
}
