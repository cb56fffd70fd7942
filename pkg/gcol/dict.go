package gcol

// dict assigns stable, first-seen-order codes to strings, used for
// the subject/predicate/string/ref dictionaries.
type dict struct {
	codes  map[string]uint32
	values []string
}

func newDict() dict {
	return dict{codes: make(map[string]uint32)}
}

// codeFor returns key's code, assigning the next code in first-seen
// order if key hasn't been interned yet.
func (d *dict) codeFor(key string) uint32 {
	if c, ok := d.codes[key]; ok {
		return c
	}
	c := uint32(len(d.values))
	d.codes[key] = c
	d.values = append(d.values, key)
	return c
}

func writeDict(w *writer, d dict) {
	w.uvarint(uint64(len(d.values)))
	for _, v := range d.values {
		w.lenPrefixedString(v)
	}
}

func readDict(r *reader) ([]string, error) {
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	values := make([]string, n)
	for i := range values {
		s, err := r.lenPrefixedString()
		if err != nil {
			return nil, err
		}
		values[i] = s
	}
	return values, nil
}
