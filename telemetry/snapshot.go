package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/soilbin/components"
	"github.com/pthm-cable/soilbin/config"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds the complete simulation state for replay.
type Snapshot struct {
	Version  int    `json:"version"`
	Seed     uint32 `json:"seed"`
	RNGState uint32 `json:"rng_state"`

	Tick    int64   `json:"tick"`
	Elapsed float64 `json:"elapsed"`

	Simulation config.SimulationParams `json:"simulation"`

	Particles []ParticleState `json:"particles"`

	// Sweep is the tool position the run continues from. Absent when the
	// session was not driven by a sweep.
	Sweep *SweepState `json:"sweep,omitempty"`

	Bookmark *Bookmark `json:"bookmark,omitempty"`
}

// SweepState is the resumable part of a tool sweep.
type SweepState struct {
	X      float64 `json:"x"`
	Z      float64 `json:"z"`
	Passes int     `json:"passes"`
}

// ParticleState holds one particle's complete state.
type ParticleState struct {
	ID   int32  `json:"id"`
	Kind string `json:"kind"`

	Pos [3]float64 `json:"pos"`
	Vel [3]float64 `json:"vel"`

	Radius        float64 `json:"radius"`
	Rotation      float64 `json:"rotation"`
	Mass          float64 `json:"mass"`
	Friction      float64 `json:"friction"`
	Force         float64 `json:"force"`
	Density       float64 `json:"density"`
	Agglomerate   bool    `json:"agglomerate,omitempty"`
	PlasticStrain float64 `json:"plastic_strain"`

	// Straw only
	Subtype string  `json:"subtype,omitempty"`
	Bonds   []int32 `json:"bonds,omitempty"`
}

var (
	kindsByName    = map[string]components.Kind{}
	subtypesByName = map[string]components.StrawSubtype{}
)

func init() {
	for _, k := range []components.Kind{components.KindSoil, components.KindStraw, components.KindDust} {
		kindsByName[k.String()] = k
	}
	for _, s := range []components.StrawSubtype{components.SubtypeRice, components.SubtypeWheat, components.SubtypeCorn} {
		subtypesByName[s.String()] = s
	}
}

func vec3(v r3.Vec) [3]float64 { return [3]float64{v.X, v.Y, v.Z} }

// CaptureParticles copies particles into their serializable form.
func CaptureParticles(particles []components.Particle) []ParticleState {
	out := make([]ParticleState, len(particles))
	for i := range particles {
		p := &particles[i]
		ps := ParticleState{
			ID:            p.ID,
			Kind:          p.Kind.String(),
			Pos:           vec3(p.Pos),
			Vel:           vec3(p.Vel),
			Radius:        p.Radius,
			Rotation:      p.Rotation,
			Mass:          p.Mass,
			Friction:      p.Friction,
			Force:         p.Force,
			Density:       p.Density,
			Agglomerate:   p.Agglomerate,
			PlasticStrain: p.PlasticStrain,
		}
		if p.Straw != nil {
			ps.Subtype = p.Straw.Subtype.String()
			ps.Bonds = append([]int32(nil), p.Straw.Bonds...)
		}
		out[i] = ps
	}
	return out
}

// RestoreParticles rebuilds the particle slice recorded in the snapshot.
// Every failure wraps config.ErrInvalid; a snapshot that would put a NaN
// into the integrator is rejected here rather than at the first tick.
func (s *Snapshot) RestoreParticles() ([]components.Particle, error) {
	out := make([]components.Particle, len(s.Particles))
	index := make(map[int32]int, len(s.Particles))
	for i, ps := range s.Particles {
		if err := ps.validate(); err != nil {
			return nil, err
		}
		if _, dup := index[ps.ID]; dup {
			return nil, invalidParticle(ps.ID, "duplicate id")
		}
		index[ps.ID] = i

		kind := kindsByName[ps.Kind]
		p := components.Particle{
			ID:            ps.ID,
			Kind:          kind,
			Pos:           r3.Vec{X: ps.Pos[0], Y: ps.Pos[1], Z: ps.Pos[2]},
			Vel:           r3.Vec{X: ps.Vel[0], Y: ps.Vel[1], Z: ps.Vel[2]},
			Radius:        ps.Radius,
			Rotation:      ps.Rotation,
			Mass:          ps.Mass,
			Friction:      ps.Friction,
			Force:         ps.Force,
			Density:       ps.Density,
			Agglomerate:   ps.Agglomerate,
			PlasticStrain: ps.PlasticStrain,
		}
		if kind == components.KindStraw {
			p.Straw = &components.Straw{
				Subtype: subtypesByName[ps.Subtype],
				Bonds:   append([]int32(nil), ps.Bonds...),
			}
		}
		out[i] = p
	}

	// Bonds are checked once every id is known.
	for _, ps := range s.Particles {
		for _, id := range ps.Bonds {
			if id == ps.ID {
				return nil, invalidParticle(ps.ID, "bonded to itself")
			}
			j, ok := index[id]
			if !ok {
				return nil, invalidParticle(ps.ID, "bond to missing particle %d", id)
			}
			other := &out[j]
			if other.Straw == nil {
				return nil, invalidParticle(ps.ID, "bond to non-straw particle %d", id)
			}
			if !other.BondedTo(ps.ID) {
				return nil, invalidParticle(ps.ID, "bond to %d is not reciprocated", id)
			}
		}
	}
	return out, nil
}

// validate checks the fields of one particle that do not depend on others.
func (ps *ParticleState) validate() error {
	kind, ok := kindsByName[ps.Kind]
	if !ok {
		return invalidParticle(ps.ID, "unknown kind %q", ps.Kind)
	}
	if kind == components.KindStraw {
		if _, ok := subtypesByName[ps.Subtype]; !ok {
			return invalidParticle(ps.ID, "unknown straw subtype %q", ps.Subtype)
		}
	} else if len(ps.Bonds) > 0 {
		return invalidParticle(ps.ID, "%s particle carries bonds", ps.Kind)
	}
	if !(ps.Radius > 0 && ps.Radius <= config.MaxParticleRadius) {
		return invalidParticle(ps.ID, "radius %v outside (0, %v]", ps.Radius, config.MaxParticleRadius)
	}
	if !(ps.Mass > 0) || math.IsInf(ps.Mass, 0) {
		return invalidParticle(ps.ID, "mass must be > 0, got %v", ps.Mass)
	}
	if !finite(ps.Pos) {
		return invalidParticle(ps.ID, "non-finite position %v", ps.Pos)
	}
	if !finite(ps.Vel) {
		return invalidParticle(ps.ID, "non-finite velocity %v", ps.Vel)
	}
	if !(ps.PlasticStrain >= 0 && ps.PlasticStrain <= 1) {
		return invalidParticle(ps.ID, "plastic strain %v outside [0,1]", ps.PlasticStrain)
	}
	return nil
}

func finite(v [3]float64) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func invalidParticle(id int32, format string, args ...any) error {
	return fmt.Errorf("%w: particle %d: "+format, append([]any{config.ErrInvalid, id}, args...)...)
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	// Build filename
	name := fmt.Sprintf("snapshot_%d", snapshot.Tick)
	if snapshot.Bookmark != nil {
		// Sanitize bookmark type for filename
		sanitized := strings.ReplaceAll(string(snapshot.Bookmark.Type), " ", "_")
		name = fmt.Sprintf("snapshot_%d_%s", snapshot.Tick, sanitized)
	}
	name += ".json"

	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
