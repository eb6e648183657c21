package memstore

// overlay holds a transaction's staged puts and deletes for one table.
type overlay[K comparable, V any] struct {
	puts map[K]V
	dels map[K]struct{}
}

func newOverlay[K comparable, V any]() *overlay[K, V] {
	return &overlay[K, V]{puts: map[K]V{}, dels: map[K]struct{}{}}
}

func (o *overlay[K, V]) put(k K, v V) {
	delete(o.dels, k)
	o.puts[k] = v
}

func (o *overlay[K, V]) del(k K) {
	delete(o.puts, k)
	o.dels[k] = struct{}{}
}

// get resolves k through the overlay, falling back to committed rows.
func get[K comparable, V any](o *overlay[K, V], committed map[K]V, k K) (V, bool) {
	if o != nil {
		if _, gone := o.dels[k]; gone {
			var zero V
			return zero, false
		}
		if v, ok := o.puts[k]; ok {
			return v, true
		}
	}
	v, ok := committed[k]
	return v, ok
}

// each visits every visible row once.
func each[K comparable, V any](o *overlay[K, V], committed map[K]V, fn func(K, V)) {
	for k, v := range committed {
		if o != nil {
			if _, gone := o.dels[k]; gone {
				continue
			}
			if _, shadowed := o.puts[k]; shadowed {
				continue
			}
		}
		fn(k, v)
	}
	if o != nil {
		for k, v := range o.puts {
			fn(k, v)
		}
	}
}

func (o *overlay[K, V]) applyTo(committed map[K]V) {
	for k := range o.dels {
		delete(committed, k)
	}
	for k, v := range o.puts {
		committed[k] = v
	}
}
