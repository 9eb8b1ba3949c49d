package models

// EmptyPlaceholder replaces empty strings before storage; the backing store
// rejects empty string attributes.
const EmptyPlaceholder = "-"

// Timestamped wraps a leaf as {"val": v, "timestamp": ts}.
func Timestamped(v Value, timestamp int64) Value {
	m := NewMap()
	m.Set("val", v)
	m.Set("timestamp", Int(timestamp))
	return Object(m)
}

// AddTimestamps wraps every field found at category -> instance -> field
// depth. Non-map values at the category or instance level are left as-is.
func AddTimestamps(status *Map, timestamp int64) *Map {
	out := status.Clone()
	out.Range(func(_ string, category Value) bool {
		instances, ok := category.AsMap()
		if !ok {
			return true
		}
		instances.Range(func(_ string, instance Value) bool {
			fields, ok := instance.AsMap()
			if !ok {
				return true
			}
			for _, field := range fields.Keys() {
				v, _ := fields.Get(field)
				fields.Set(field, Timestamped(v, timestamp))
			}
			return true
		})
		return true
	})
	return out
}

// DeepMerge recursively unions two values. When both sides are maps the keys
// are merged; otherwise updates wins. Neither input is modified.
func DeepMerge(base, updates Value) Value {
	bm, bok := base.AsMap()
	um, uok := updates.AsMap()
	if !bok || !uok {
		return updates.Clone()
	}
	return Object(MergeMaps(bm, um))
}

func MergeMaps(base, updates *Map) *Map {
	out := base.Clone()
	updates.Range(func(k string, uv Value) bool {
		if bv, ok := out.Get(k); ok {
			out.Set(k, DeepMerge(bv, uv))
		} else {
			out.Set(k, uv.Clone())
		}
		return true
	})
	return out
}

// Sanitize rewrites empty string leaves to EmptyPlaceholder through nested
// maps. Lists and non-string leaves are returned unchanged.
func Sanitize(v Value) Value {
	switch v.Kind() {
	case KindString:
		if s, _ := v.AsString(); s == "" {
			return String(EmptyPlaceholder)
		}
		return v
	case KindMap:
		m, _ := v.AsMap()
		return Object(SanitizeMap(m))
	}
	return v.Clone()
}

func SanitizeMap(m *Map) *Map {
	out := NewMap()
	m.Range(func(k string, v Value) bool {
		out.Set(k, Sanitize(v))
		return true
	})
	return out
}
