package csg

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Shape3 is the contract every solid, primitive or composite, satisfies to
// take part in boolean composition and spatial queries. Points and
// directions are expressed in the shape's own frame. A tol argument that is
// not positive selects the shape's skin.
type Shape3 interface {
	// ShapeName returns the kind of shape, e.g. "box".
	ShapeName() string

	// IsInside and IsOutside are the exact primitive tests, with no
	// bounding box shortcut.
	IsInside(p r3.Vec, tol float64) bool
	IsOutside(p r3.Vec, tol float64) bool
	// OnSurface returns the face containing p among those allowed by mask,
	// or the invalid face. The invalid mask allows every face.
	OnSurface(p r3.Vec, mask FaceID, tol float64) FaceID
	// NormalOnSurface returns the outward unit normal at p on face.
	NormalOnSurface(p r3.Vec, face FaceID) r3.Vec
	// FindIntercept returns the nearest forward crossing of the ray with
	// the shape's surface.
	FindIntercept(from, dir r3.Vec, tol float64) FaceIntercept
	// MakeAnyFace returns the wildcard face for the shape's addressing mode.
	MakeAnyFace() FaceID

	// Tolerance resolves tol against the shape's skin.
	Tolerance(tol float64) float64
	BoundingData() (BoundingData, bool)
	ComputedFaces() []FaceInfo
	Volume() float64

	Lock() error
	Unlock()
	IsLocked() bool
	// Reset unlocks the shape and restores default parameters.
	Reset()
}

// Builder is implemented by shapes that derive bounding data and faces from
// their parameters. ShapeBase calls it when building its caches.
type Builder interface {
	BuildBoundingData() (BoundingData, bool)
	ComputeFaces() []FaceInfo
}

// Observer receives statistics of composite intercept searches. steps is
// the number of rejected candidates before the search ended.
type Observer interface {
	ObserveIntercept(shape string, steps int, err error)
}

// ShapeBase holds the state shared by all shapes: skin, forced volume,
// stackable data, lock flag and the bounding data and face caches.
// Shapes embed it and register themselves with InitBase.
//
// Caches are built when the shape is locked. Accessing them on an unlocked
// shape builds them on demand under a mutex.
type ShapeBase struct {
	skin         float64
	forcedVolume float64
	stackable    StackableData
	hasStackable bool
	locked       bool
	log          *zap.Logger
	observer     Observer
	builder      Builder

	mu         sync.Mutex
	bb         BoundingData
	hasBB      bool
	bbBuilt    bool
	faces      []FaceInfo
	facesBuilt bool
}

// InitBase sets the builder and restores defaults. Shapes call it from their constructor.
func (b *ShapeBase) InitBase(bld Builder) {
	b.builder = bld
	b.ResetBase()
}

// ResetBase unlocks the shape, clears caches and restores default skin and volume.
func (b *ShapeBase) ResetBase() {
	b.Unlock()
	b.skin = math.NaN()
	b.forcedVolume = math.NaN()
	b.hasStackable = false
	b.stackable = StackableData{}
}

// LockBase builds caches eagerly and marks the shape locked.
func (b *ShapeBase) LockBase() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buildBoundingLocked()
	b.buildFacesLocked()
	b.locked = true
	b.Logger().Debug("shape locked", zap.Bool("bounding", b.hasBB), zap.Int("faces", len(b.faces)))
	return nil
}

// Unlock clears the lock flag, the cached bounding data and the computed faces.
func (b *ShapeBase) Unlock() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.locked = false
	b.bb, b.hasBB, b.bbBuilt = BoundingData{}, false, false
	b.faces, b.facesBuilt = nil, false
	b.Logger().Debug("shape unlocked")
}

func (b *ShapeBase) IsLocked() bool { return b.locked }

// checkUnlocked returns ErrLocked when parameters may not change.
func (b *ShapeBase) checkUnlocked() error {
	if b.locked {
		return ErrLocked
	}
	return nil
}

// Skin returns the configured skin, NaN when unset.
func (b *ShapeBase) Skin() float64 { return b.skin }

// SetSkin sets the shape's default tolerance.
func (b *ShapeBase) SetSkin(skin float64) error {
	if err := b.checkUnlocked(); err != nil {
		return err
	}
	if !validTolerance(skin) {
		return fmt.Errorf("%w: skin %g", ErrInvalidShape, skin)
	}
	b.skin = skin
	return nil
}

// Tolerance resolves tol: tol itself if positive, else the skin, else DefaultTolerance.
func (b *ShapeBase) Tolerance(tol float64) float64 {
	return ResolveTolerance(tol, b.skin)
}

// BoundingData returns the cached bounding data, building it if needed.
func (b *ShapeBase) BoundingData() (BoundingData, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buildBoundingLocked()
	return b.bb, b.hasBB
}

// ComputedFaces returns the cached faces, computing them if needed.
// The returned slice must not be modified.
func (b *ShapeBase) ComputedFaces() []FaceInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buildFacesLocked()
	return b.faces
}

func (b *ShapeBase) buildBoundingLocked() {
	if b.bbBuilt || b.builder == nil {
		return
	}
	b.bb, b.hasBB = b.builder.BuildBoundingData()
	if b.hasBB && !b.bb.IsValid() {
		b.hasBB = false
	}
	b.bbBuilt = true
}

func (b *ShapeBase) buildFacesLocked() {
	if b.facesBuilt || b.builder == nil {
		return
	}
	b.faces = b.builder.ComputeFaces()
	b.facesBuilt = true
}

// Volume returns NaN. Shapes with a known volume override it.
func (b *ShapeBase) Volume() float64 { return math.NaN() }

// SurfaceArea returns NaN. Shapes with a known area override it.
func (b *ShapeBase) SurfaceArea() float64 { return math.NaN() }

// SetForcedVolume overrides the computed volume.
func (b *ShapeBase) SetForcedVolume(v float64) error {
	if err := b.checkUnlocked(); err != nil {
		return err
	}
	if !(v > 0) || math.IsInf(v, 1) {
		return fmt.Errorf("%w: forced volume %g", ErrInvalidShape, v)
	}
	b.forcedVolume = v
	return nil
}

func (b *ShapeBase) HasForcedVolume() bool { return !math.IsNaN(b.forcedVolume) }

// ForcedVolume returns the forced volume. It panics if none was set.
func (b *ShapeBase) ForcedVolume() float64 {
	if !b.HasForcedVolume() {
		panic(ErrNoForcedVolume)
	}
	return b.forcedVolume
}

// SetLogger sets the logger used for diagnostics. A nil logger discards output.
func (b *ShapeBase) SetLogger(l *zap.Logger) { b.log = l }

// Logger returns the shape logger, never nil.
func (b *ShapeBase) Logger() *zap.Logger {
	if b.log == nil {
		return nopLogger
	}
	return b.log
}

// SetObserver sets the observer notified of intercept searches.
func (b *ShapeBase) SetObserver(o Observer) { b.observer = o }

func (b *ShapeBase) Observer() Observer { return b.observer }

var nopLogger = zap.NewNop()

type forcedVolumer interface {
	HasForcedVolume() bool
	ForcedVolume() float64
}

// EffectiveVolume returns the forced volume of s if set, else its computed volume.
func EffectiveVolume(s Shape3) float64 {
	if f, ok := s.(forcedVolumer); ok && f.HasForcedVolume() {
		return f.ForcedVolume()
	}
	return s.Volume()
}

type logSetter interface {
	SetLogger(*zap.Logger)
}

// SetLogger sets the logger of s if it accepts one.
func SetLogger(s Shape3, l *zap.Logger) {
	if ls, ok := s.(logSetter); ok {
		ls.SetLogger(l)
	}
}
