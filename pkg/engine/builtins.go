package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/burl/pkg/gesture"
	"github.com/chazu/burl/pkg/kernel"
	"github.com/chazu/burl/pkg/session"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms console source code before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: set-param -> set_param
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Keyword at end with no value: treat as flag with nil.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a kernel.Vec3.
type sexpVec3 struct {
	vec kernel.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpQuat wraps a kernel.Quat.
type sexpQuat struct {
	quat kernel.Quat
}

func (q *sexpQuat) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(quat %g %g %g %g)", q.quat.X, q.quat.Y, q.quat.Z, q.quat.W)
}
func (q *sexpQuat) Type() *zygo.RegisteredType { return nil }

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (kernel.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return kernel.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toQuat extracts a Quat from a sexpQuat.
func toQuat(s zygo.Sexp) (kernel.Quat, error) {
	if q, ok := s.(*sexpQuat); ok {
		return q.quat, nil
	}
	return kernel.Quat{}, fmt.Errorf("expected quat, got %T (%s)", s, s.SexpString(nil))
}

// toObjectID extracts an object id from an integer.
func toObjectID(s zygo.Sexp) (kernel.ObjectID, error) {
	i, ok := s.(*zygo.SexpInt)
	if !ok {
		return 0, fmt.Errorf("expected object id, got %T (%s)", s, s.SexpString(nil))
	}
	if i.Val < 0 || i.Val > math.MaxUint32 {
		return 0, fmt.Errorf("object id %d out of range", i.Val)
	}
	return kernel.ObjectID(i.Val), nil
}

// requireFloat reads a mandatory numeric keyword argument.
func requireFloat(pa kwArgs, fn, key string) (float64, error) {
	v, ok := pa.kw[key]
	if !ok {
		return 0, fmt.Errorf("%s: missing :%s", fn, key)
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", fn, key, err)
	}
	return f, nil
}

func idSexp(id kernel.ObjectID) zygo.Sexp {
	return &zygo.SexpInt{Val: int64(id)}
}

// ---------------------------------------------------------------------------
// Console state
// ---------------------------------------------------------------------------

// console is the per-evaluation state the builtins work on. Gestures are
// replayed on a virtual clock so scripts run instantly and reproducibly.
type console struct {
	ctx        context.Context
	s          *session.Synchronizer
	thresholds gesture.Thresholds
	clock      *gesture.ManualClock
	tracker    *gesture.Tracker
	pending    []gesture.Event
	result     Result
}

func newConsole(ctx context.Context, s *session.Synchronizer, th gesture.Thresholds, logger *slog.Logger) *console {
	def := gesture.DefaultThresholds()
	if th.LongPress <= 0 {
		th.LongPress = def.LongPress
	}
	if th.ClickWindow <= 0 {
		th.ClickWindow = def.ClickWindow
	}
	c := &console{ctx: ctx, s: s, thresholds: th, clock: gesture.NewManualClock()}
	c.tracker = gesture.NewTracker(
		func(e gesture.Event) { c.pending = append(c.pending, e) },
		gesture.WithClock(c.clock),
		gesture.WithThresholds(th),
		gesture.WithLogger(logger),
	)
	return c
}

func (c *console) close() { c.tracker.Close() }

// press is how long a replayed tap holds the pointer down. It stays well
// under both thresholds so a double tap fits in the click window.
func (c *console) press() time.Duration {
	d := 10 * time.Millisecond
	if q := c.thresholds.ClickWindow / 4; q < d {
		d = q
	}
	if q := c.thresholds.LongPress / 4; q < d {
		d = q
	}
	return d
}

// settle runs the clock past any open click window, then applies every
// recognized intent to the session the way the desktop shell does.
func (c *console) settle() (gesture.Intent, error) {
	c.clock.Advance(c.thresholds.ClickWindow)

	evs := c.pending
	c.pending = nil
	last := gesture.None
	for _, ev := range evs {
		c.result.Intents = append(c.result.Intents, ev)
		last = ev.Intent
		if err := c.s.ApplyIntent(ev); err != nil {
			return last, err
		}
		if ev.Intent == gesture.LongPressDelete {
			c.tracker.Remove(ev.Target)
		}
	}
	return last, nil
}

func (c *console) tap(t gesture.Target) {
	c.tracker.Down(t)
	c.clock.Advance(c.press())
	c.tracker.Up(t)
}

func (c *console) hold(t gesture.Target) {
	c.tracker.Down(t)
	c.clock.Advance(c.thresholds.LongPress)
	c.tracker.Up(t)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// guard refuses to run fn once the evaluation has been abandoned, so a
// script that outlived its timeout stops touching the session.
func (c *console) guard(fn builtin) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if c.ctx.Err() != nil {
			return zygo.SexpNull, fmt.Errorf("%s: %w", name, ErrAbandoned)
		}
		return fn(env, name, args)
	}
}

// registerBuiltins installs the console builtins into a zygomys environment.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals and
// kebab-case names match the underscore names registered here.
func registerBuiltins(env *zygo.Zlisp, c *console) {
	add := func(name string, fn builtin) { env.AddFunction(name, c.guard(fn)) }

	create := func(fn string, build func(pa kwArgs) (session.Params, error)) builtin {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			p, err := build(parseArgs(args))
			if err != nil {
				return zygo.SexpNull, err
			}
			id, err := c.s.CreateObject(p)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			c.result.Created = append(c.result.Created, id)
			return idSexp(id), nil
		}
	}

	// (box :length 1 :width 2 :height 3)
	add("box", create("box", func(pa kwArgs) (session.Params, error) {
		l, err := requireFloat(pa, "box", session.ParamLength)
		if err != nil {
			return session.Params{}, err
		}
		w, err := requireFloat(pa, "box", session.ParamWidth)
		if err != nil {
			return session.Params{}, err
		}
		h, err := requireFloat(pa, "box", session.ParamHeight)
		if err != nil {
			return session.Params{}, err
		}
		return session.Box(l, w, h), nil
	}))

	// (cylinder :radius 1 :height 2)
	add("cylinder", create("cylinder", func(pa kwArgs) (session.Params, error) {
		r, err := requireFloat(pa, "cylinder", session.ParamRadius)
		if err != nil {
			return session.Params{}, err
		}
		h, err := requireFloat(pa, "cylinder", session.ParamHeight)
		if err != nil {
			return session.Params{}, err
		}
		return session.Cylinder(r, h), nil
	}))

	// (sphere :radius 1)
	add("sphere", create("sphere", func(pa kwArgs) (session.Params, error) {
		r, err := requireFloat(pa, "sphere", session.ParamRadius)
		if err != nil {
			return session.Params{}, err
		}
		return session.Sphere(r), nil
	}))

	// (set-param id :radius 2 :height 4)
	//
	// All keywords are applied in one kernel update.
	add("set_param", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("set-param requires an object id")
		}
		id, err := toObjectID(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("set-param: %w", err)
		}
		obj, ok := c.s.Object(id)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("set-param %d: %w", id, session.ErrUnknownObject)
		}
		if len(pa.kw) == 0 {
			return zygo.SexpNull, fmt.Errorf("set-param: no parameters given")
		}

		keys := make([]string, 0, len(pa.kw))
		for k := range pa.kw {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		p := obj.Params
		for _, k := range keys {
			f, err := toFloat64(pa.kw[k])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("set-param: %s: %w", k, err)
			}
			if p, err = p.With(k, f); err != nil {
				return zygo.SexpNull, fmt.Errorf("set-param: %w", err)
			}
		}
		if err := c.s.UpdateParams(id, p); err != nil {
			return zygo.SexpNull, fmt.Errorf("set-param: %w", err)
		}
		return idSexp(id), nil
	})

	// (vec3 1 2 3)
	add("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: kernel.Vec3{X: v[0], Y: v[1], Z: v[2]}}, nil
	})

	// (quat 0 0 0 1)
	add("quat", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 4 {
			return zygo.SexpNull, fmt.Errorf("quat requires exactly 4 arguments, got %d", len(args))
		}
		var q [4]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("quat: %c: %w", "xyzw"[i], err)
			}
			q[i] = f
		}
		return &sexpQuat{quat: kernel.Quat{X: q[0], Y: q[1], Z: q[2], W: q[3]}}, nil
	})

	// (place id (vec3 1 0 0) :rotation (quat 0 0 0 1))
	//
	// Omitted position or rotation keeps the object's current value.
	add("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("place requires an object id as first argument")
		}
		id, err := toObjectID(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		obj, ok := c.s.Object(id)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("place %d: %w", id, session.ErrUnknownObject)
		}

		pos, rot := obj.Placement.Position, obj.Placement.Orientation
		if len(pa.positional) > 1 {
			if pos, err = toVec3(pa.positional[1]); err != nil {
				return zygo.SexpNull, fmt.Errorf("place: position: %w", err)
			}
		}
		if v, ok := pa.kw["at"]; ok {
			if pos, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("place: at: %w", err)
			}
		}
		if v, ok := pa.kw["rotation"]; ok {
			if rot, err = toQuat(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("place: rotation: %w", err)
			}
		}

		if err := c.s.UpdatePlacement(id, pos, rot); err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}
		return idSexp(id), nil
	})

	// (delete id)
	add("delete", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		id, err := singleID("delete", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if err := c.s.DeleteObject(id); err != nil {
			return zygo.SexpNull, fmt.Errorf("delete: %w", err)
		}
		c.tracker.Remove(gesture.Target(id))
		return zygo.SexpNull, nil
	})

	// (select id), (select 0) clears
	add("select", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		id, err := singleID("select", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		if id == 0 {
			c.s.ClearSelection()
			return zygo.SexpNull, nil
		}
		if err := c.s.Select(id); err != nil {
			return zygo.SexpNull, fmt.Errorf("select: %w", err)
		}
		return idSexp(id), nil
	})

	// (selected) -> id, 0 when nothing is selected
	add("selected", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return idSexp(c.s.SelectedID()), nil
	})

	// (param id :radius) -> current value
	add("param", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("param requires an object id and a parameter name")
		}
		id, err := toObjectID(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("param: %w", err)
		}
		key, err := toKeywordString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("param: %w", err)
		}
		obj, ok := c.s.Object(id)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("param %d: %w", id, session.ErrUnknownObject)
		}
		v, err := obj.Params.Get(key)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("param: %w", err)
		}
		return &zygo.SexpFloat{Val: v}, nil
	})

	// (objects) -> count
	add("objects", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return &zygo.SexpInt{Val: int64(len(c.s.Objects()))}, nil
	})

	// (triangles id) -> triangle count of the current tessellation
	add("triangles", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		id, err := singleID("triangles", args)
		if err != nil {
			return zygo.SexpNull, err
		}
		m, err := c.s.Mesh(id)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("triangles: %w", err)
		}
		return &zygo.SexpInt{Val: int64(m.TriangleCount())}, nil
	})

	gestureFn := func(fn string, replay func(gesture.Target)) builtin {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			id, err := singleID(fn, args)
			if err != nil {
				return zygo.SexpNull, err
			}
			if _, ok := c.s.Object(id); !ok {
				return zygo.SexpNull, fmt.Errorf("%s %d: %w", fn, id, session.ErrUnknownObject)
			}
			replay(gesture.Target(id))
			intent, err := c.settle()
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			return &zygo.SexpStr{S: intent.String()}, nil
		}
	}

	// (tap id) -> "select"
	add("tap", gestureFn("tap", c.tap))

	// (double-tap id) -> "activate"
	add("double_tap", gestureFn("double-tap", func(t gesture.Target) {
		c.tap(t)
		c.clock.Advance(c.press())
		c.tap(t)
	}))

	// (hold id) -> "long-press-delete"
	add("hold", gestureFn("hold", c.hold))
}

func singleID(fn string, args []zygo.Sexp) (kernel.ObjectID, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s requires exactly 1 argument, got %d", fn, len(args))
	}
	id, err := toObjectID(args[0])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", fn, err)
	}
	return id, nil
}
