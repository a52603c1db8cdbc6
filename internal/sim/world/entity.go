package world

// Pose names for the stride animation played while an agent moves.
const (
	PoseNeutral = "neutral"
	PoseStrideA = "stride_a"
	PoseStrideB = "stride_b"
)

const poseAnimationTicks = 6

// Entity is the world-owned body of an agent. The world may remove it
// independently of the bridge (shutdown, external removal); holders must
// treat a missing or dead entity as gone.
type Entity struct {
	ID    uint64
	Name  string
	Pos   Vec3
	Yaw   float64
	Pitch float64
	Alive bool

	MainHand *ItemStack

	Pose      string
	poseTicks int
	poseFlip  bool
}

// spawnEntity creates a live entity at a snapped location. Loop only.
func (w *World) spawnEntity(name string, pos Vec3) *Entity {
	w.nextEntityID++
	e := &Entity{
		ID:    w.nextEntityID,
		Name:  name,
		Pos:   snapToCell(pos),
		Alive: true,
		Pose:  PoseNeutral,
	}
	w.entities[e.ID] = e
	return e
}

// RemoveEntity kills and drops an entity, mimicking external removal such as
// a chunk unload. Loop only.
func (w *World) RemoveEntity(id uint64) {
	if e := w.entities[id]; e != nil {
		e.Alive = false
		delete(w.entities, id)
	}
}

// lookupEntity returns a live entity or nil. Loop only.
func (w *World) lookupEntity(id uint64) *Entity {
	e := w.entities[id]
	if e == nil || !e.Alive {
		return nil
	}
	return e
}

func (e *Entity) startStride() {
	e.poseTicks = poseAnimationTicks
}

// stepPoses advances the stride animation one tick for every animated
// entity, resetting to neutral when the countdown ends. Loop only.
func (w *World) stepPoses() {
	for _, e := range w.entities {
		if e.poseTicks <= 0 {
			continue
		}
		e.poseFlip = !e.poseFlip
		if e.poseFlip {
			e.Pose = PoseStrideA
		} else {
			e.Pose = PoseStrideB
		}
		e.poseTicks--
		if e.poseTicks == 0 {
			e.Pose = PoseNeutral
		}
	}
}
