package bindings

import "fmt"

// Gesture is one of the discrete inputs that can be bound to an app.
type Gesture int

const (
	LeftSwipe Gesture = iota
	RightSwipe
	UpSwipe
	DownSwipe
	LongPress

	GestureCount = int(LongPress) + 1
)

var gestureNames = [GestureCount]string{"left", "right", "up", "down", "longpress"}

// Persisted key prefixes, one per gesture.
var gestureKeyPrefixes = [GestureCount]string{"left_swipe", "right_swipe", "up_swipe", "down_swipe", "long_press"}

func Gestures() []Gesture {
	return []Gesture{LeftSwipe, RightSwipe, UpSwipe, DownSwipe, LongPress}
}

func (g Gesture) Valid() bool {
	return g >= LeftSwipe && g <= LongPress
}

func (g Gesture) String() string {
	if !g.Valid() {
		return fmt.Sprintf("gesture(%d)", int(g))
	}
	return gestureNames[g]
}

// PackageKey is the settings key holding the bound package name.
func (g Gesture) PackageKey() string {
	return gestureKeyPrefixes[g] + "_package"
}

// WorkKey is the settings key holding the bound entry's secondary-profile flag.
func (g Gesture) WorkKey() string {
	return gestureKeyPrefixes[g] + "_is_work"
}

func ParseGesture(s string) (Gesture, error) {
	for i, name := range gestureNames {
		if name == s {
			return Gesture(i), nil
		}
	}
	switch s {
	case "long_press", "long-press":
		return LongPress, nil
	}
	return 0, fmt.Errorf("unknown gesture %q", s)
}

// PickTarget says where an app chosen in the picker goes: one of the
// gesture bindings or the delay set.
type PickTarget string

const (
	PickNone      PickTarget = ""
	PickLeft      PickTarget = "left"
	PickRight     PickTarget = "right"
	PickUp        PickTarget = "up"
	PickDown      PickTarget = "down"
	PickLongPress PickTarget = "longpress"
	PickDelayed   PickTarget = "delayed"
)

func ParsePickTarget(s string) (PickTarget, error) {
	switch t := PickTarget(s); t {
	case PickLeft, PickRight, PickUp, PickDown, PickLongPress, PickDelayed:
		return t, nil
	}
	return PickNone, fmt.Errorf("unknown picker target %q", s)
}

// Gesture returns the gesture a pick target binds, false for the delay set.
func (t PickTarget) Gesture() (Gesture, bool) {
	switch t {
	case PickLeft:
		return LeftSwipe, true
	case PickRight:
		return RightSwipe, true
	case PickUp:
		return UpSwipe, true
	case PickDown:
		return DownSwipe, true
	case PickLongPress:
		return LongPress, true
	}
	return 0, false
}
