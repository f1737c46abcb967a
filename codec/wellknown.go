package codec

import (
	"fmt"
	"net/netip"
	"net/url"
)

// RegisterURL installs a url.URL conversion under name. On the wire the
// value is an absolute URL string.
func RegisterURL(r *Registry, name string) {
	Register(r, name,
		func(raw any) (url.URL, error) {
			s, ok := raw.(string)
			if !ok {
				return url.URL{}, fmt.Errorf("codec: %q expects a string, got %T", name, raw)
			}
			u, err := url.Parse(s)
			if err != nil {
				return url.URL{}, err
			}
			return *u, nil
		},
		func(u url.URL) (any, error) {
			return u.String(), nil
		})
}

// RegisterAddr installs a netip.Addr conversion under name. On the wire the
// value is a textual IP address.
func RegisterAddr(r *Registry, name string) {
	Register(r, name,
		func(raw any) (netip.Addr, error) {
			s, ok := raw.(string)
			if !ok {
				return netip.Addr{}, fmt.Errorf("codec: %q expects a string, got %T", name, raw)
			}
			return netip.ParseAddr(s)
		},
		func(a netip.Addr) (any, error) {
			return a.String(), nil
		})
}
