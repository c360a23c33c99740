package cache

// ScopedKeyer prefixes every key of an inner Keyer.
// The viewer server scopes keys per deployment so several instances can
// share one Redis database.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner; a nil inner uses [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

func (k *ScopedKeyer) ExportKey(datasetHash string, opts ExportKeyOpts) string {
	return k.prefix + k.inner.ExportKey(datasetHash, opts)
}
