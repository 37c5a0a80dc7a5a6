package directive

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/pulsehtml/pulse/dom"
	"github.com/pulsehtml/pulse/reactive"
	"github.com/pulsehtml/pulse/scope"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

type forInstance struct {
	nodes []*html.Node
}

type forBinding struct {
	p             *Processor
	host          *html.Node
	sc            *scope.S
	itemName      string
	containerName string
	container     *reactive.Object
	templates     []*html.Node
	instances     map[int]*forInstance
}

// applyFor wires "item of container" on n. It reports whether the directive
// took over the children: a malformed directive leaves them to normal
// processing.
func (p *Processor) applyFor(n *html.Node, sc *scope.S, src string) bool {
	sep := strings.Index(src, " of ")
	if sep < 0 {
		p.logger.Error("p:for is not of the form \"item of container\"",
			zap.String("directive", src), zap.String("element", dom.Tag(n)))
		return false
	}
	itemName := strings.TrimSpace(src[:sep])
	containerSrc := strings.TrimSpace(src[sep+len(" of "):])
	cd, err := p.compiler.Compile(containerSrc)
	if err != nil {
		p.logger.Error("p:for compile failed", zap.String("expr", containerSrc), zap.Error(err))
		return true
	}
	val, err := cd.Eval(sc)
	if err != nil {
		p.logger.Error("p:for container failed", zap.String("expr", containerSrc), zap.Error(err))
		return true
	}
	container, ok := p.store.Manage(val).(*reactive.Object)
	if !ok || !container.IsArray() {
		p.logger.Error("p:for container is not an array",
			zap.String("expr", containerSrc), zap.String("element", dom.Tag(n)))
		return true
	}
	f := &forBinding{
		p:         p,
		host:      n,
		sc:        sc,
		itemName:  itemName,
		container: container,
		instances: map[int]*forInstance{},
	}
	if identPattern.MatchString(containerSrc) {
		f.containerName = containerSrc
	}
	f.takeTemplates()
	for i := 0; i < container.Len(); i++ {
		f.instantiate(i)
	}
	disp, err := p.store.RegisterListener(container.Raw(), f.onMutation)
	if err != nil {
		p.logger.Error("p:for listener failed", zap.Error(err))
		return true
	}
	p.addDisposer(n, func() {
		disp()
		f.destroyAll()
	})
	return true
}

// takeTemplates detaches the per-item blueprint: a lone <template> child
// contributes its content, otherwise the host's own children serve.
func (f *forBinding) takeTemplates() {
	children := dom.ElementChildren(f.host)
	if len(children) == 1 && dom.IsTemplate(children[0]) {
		wrapper := children[0]
		children = dom.ElementChildren(wrapper)
		dom.Remove(wrapper)
	}
	for _, t := range children {
		dom.Remove(t)
		f.templates = append(f.templates, t)
	}
}

// instantiate clones the blueprint for one index, inserts the clones at the
// order-preserving position and runs directive processing on them.
func (f *forBinding) instantiate(i int) {
	item := f.container.Get(strconv.Itoa(i))
	itemScope := scope.New(f.p.logger, nil)
	itemScope.Add(f.itemName, item)
	if f.containerName != "" && f.containerName != f.itemName {
		itemScope.Add(f.containerName, f.container)
	}
	itemScope.Inherit(f.sc)
	inst := &forInstance{}
	ref := f.referenceFor(i)
	for _, t := range f.templates {
		clone := dom.CloneDeep(t)
		if ref == nil {
			next := f.nextNeighbor(i)
			if next != nil {
				dom.InsertBefore(f.host, clone, next)
			} else {
				dom.InsertAfter(f.host, clone, nil)
			}
		} else {
			dom.InsertAfter(f.host, clone, ref)
		}
		ref = clone
		inst.nodes = append(inst.nodes, clone)
		f.p.Process(clone, itemScope)
	}
	f.instances[i] = inst
}

// referenceFor prefers the last node of the closest live lower index, when
// that neighbor is still attached.
func (f *forBinding) referenceFor(i int) *html.Node {
	for j := i - 1; j >= 0; j-- {
		inst, found := f.instances[j]
		if !found || len(inst.nodes) == 0 {
			continue
		}
		last := inst.nodes[len(inst.nodes)-1]
		if last.Parent == f.host {
			return last
		}
	}
	return nil
}

// nextNeighbor finds the first node of the closest live higher index.
func (f *forBinding) nextNeighbor(i int) *html.Node {
	var above []int
	for j := range f.instances {
		if j > i {
			above = append(above, j)
		}
	}
	sort.Ints(above)
	for _, j := range above {
		inst := f.instances[j]
		if len(inst.nodes) > 0 && inst.nodes[0].Parent == f.host {
			return inst.nodes[0]
		}
	}
	return nil
}

func (f *forBinding) destroy(i int) {
	inst, found := f.instances[i]
	if !found {
		return
	}
	delete(f.instances, i)
	for _, node := range inst.nodes {
		f.p.DisposeSubtree(node)
		dom.Remove(node)
	}
}

func (f *forBinding) destroyAll() {
	for i := range f.instances {
		f.destroy(i)
	}
}

// onMutation handles container writes: a length write destroys instances
// past the new length, an index write replaces that one slot. A write with
// an unchanged value still replaces; slots are not diffed. Keys that are
// not non-negative integers are left to other listeners.
func (f *forBinding) onMutation(key string, value interface{}) {
	if key == "length" {
		newLen := f.container.Len()
		for i := range f.instances {
			if i >= newLen {
				f.destroy(i)
			}
		}
		return
	}
	idx, err := strconv.Atoi(key)
	if err != nil || idx < 0 {
		return
	}
	f.destroy(idx)
	if idx < f.container.Len() {
		f.instantiate(idx)
	}
}
