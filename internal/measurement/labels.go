package measurement

// Label is a single key/value pair.
type Label struct {
	Key   string
	Value string
}

// Labels is an insertion-ordered set of labels with unique keys.
type Labels []Label

// Pairs builds Labels from alternating keys and values. A trailing key
// without a value is ignored.
func Pairs(kv ...string) Labels {
	var l Labels
	for i := 0; i+1 < len(kv); i += 2 {
		l = l.With(kv[i], kv[i+1])
	}

	return l
}

// With returns a copy of l with key set to value. An existing key keeps its
// position; a new key is appended.
func (l Labels) With(key, value string) Labels {
	out := make(Labels, len(l), len(l)+1)
	copy(out, l)

	for i := range out {
		if out[i].Key == key {
			out[i].Value = value
			return out
		}
	}

	return append(out, Label{Key: key, Value: value})
}

// Merge returns a copy of l with every label of other applied in order.
func (l Labels) Merge(other Labels) Labels {
	out := l.Clone()
	for _, lbl := range other {
		out = out.With(lbl.Key, lbl.Value)
	}

	return out
}

// Get returns the value for key.
func (l Labels) Get(key string) (string, bool) {
	for _, lbl := range l {
		if lbl.Key == key {
			return lbl.Value, true
		}
	}

	return "", false
}

// Clone returns an independent copy of l.
func (l Labels) Clone() Labels {
	if l == nil {
		return nil
	}

	out := make(Labels, len(l))
	copy(out, l)

	return out
}
