package dom

import "golang.org/x/net/html"

type visObserver struct {
	fn   func()
	gone bool
}

// IsVisible reports whether n has been marked visible.
func (d *Document) IsVisible(n *html.Node) bool {
	return d.visible[n]
}

// ObserveVisible calls fn once when n first becomes visible. If n already
// is, fn runs immediately: the signal replays, it is not edge-triggered.
func (d *Document) ObserveVisible(n *html.Node, fn func()) Disposer {
	if d.visible[n] {
		fn()
		return func() {}
	}
	obs := &visObserver{fn: fn}
	d.visObs[n] = append(d.visObs[n], obs)
	return func() {
		obs.gone = true
		list := d.visObs[n]
		for i, cand := range list {
			if cand == obs {
				d.visObs[n] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

// MarkVisible records that n intersected the viewport and fires pending
// observers, each at most once.
func (d *Document) MarkVisible(n *html.Node) {
	d.visible[n] = true
	pending := d.visObs[n]
	delete(d.visObs, n)
	for _, obs := range pending {
		if obs.gone {
			continue
		}
		obs.fn()
	}
}
