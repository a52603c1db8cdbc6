package world

import (
	"strconv"
	"strings"
)

// DispatchCommand executes one administrative command line against the
// world's console interpreter and reports success. Unknown commands and bad
// arguments report failure; they are not errors of the bridge itself.
// Loop only.
func (w *World) DispatchCommand(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(fields[0]) {
	case "say":
		if len(fields) < 2 {
			return false
		}
		if w.log != nil {
			w.log.Printf("[console] %s", strings.Join(fields[1:], " "))
		}
		return true

	case "time":
		// time set <0..23999>
		if len(fields) != 3 || !strings.EqualFold(fields[1], "set") {
			return false
		}
		n, err := strconv.Atoi(fields[2])
		if err != nil || n < 0 || n >= 24000 {
			return false
		}
		w.timeOfDay = n
		return true

	case "weather":
		if len(fields) != 2 {
			return false
		}
		switch strings.ToLower(fields[1]) {
		case "clear", "rain", "thunder":
			w.weather = strings.ToLower(fields[1])
			return true
		}
		return false

	case "setblock":
		// setblock <x> <y> <z> <block|air>
		if len(fields) != 5 {
			return false
		}
		var c Cell
		for i, dst := range []*int{&c.X, &c.Y, &c.Z} {
			n, err := strconv.Atoi(fields[1+i])
			if err != nil {
				return false
			}
			*dst = n
		}
		id := strings.ToLower(fields[4])
		if id != BlockAir && !ValidBlock(id) {
			return false
		}
		w.SetBlock(c, id)
		w.audit(AuditEntry{Actor: "console", Action: "SET_BLOCK", Pos: [3]int{c.X, c.Y, c.Z}, Detail: id})
		return true

	case "tp":
		// tp <player> <x> <y> <z>
		if len(fields) != 5 {
			return false
		}
		p := w.resolvePlayer(fields[1])
		if p == nil {
			return false
		}
		var pos Vec3
		for i, dst := range []*float64{&pos.X, &pos.Y, &pos.Z} {
			f, err := strconv.ParseFloat(fields[2+i], 64)
			if err != nil {
				return false
			}
			*dst = f
		}
		p.Pos = pos
		return true
	}
	return false
}

// TimeOfDay and Weather expose interpreter-visible state for the admin
// surface. Loop only.
func (w *World) TimeOfDay() int  { return w.timeOfDay }
func (w *World) Weather() string { return w.weather }
