package wpas

import (
	"errors"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

// fakeBus 记录方法调用的 D-Bus 连接
type fakeBus struct {
	mu      sync.Mutex
	calls   []string
	props   map[dbus.ObjectPath]map[string]dbus.Variant
	getAll  map[dbus.ObjectPath]map[string]dbus.Variant
	replies map[string][]interface{}
	fail    map[string]error
	matches int
	sigCh   chan<- *dbus.Signal
	closed  bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		props:   make(map[dbus.ObjectPath]map[string]dbus.Variant),
		getAll:  make(map[dbus.ObjectPath]map[string]dbus.Variant),
		replies: make(map[string][]interface{}),
		fail:    make(map[string]error),
	}
}

func (f *fakeBus) Object(_ string, path dbus.ObjectPath) dbus.BusObject {
	return &fakeObject{bus: f, path: path}
}

func (f *fakeBus) Signal(ch chan<- *dbus.Signal) { f.sigCh = ch }

func (f *fakeBus) RemoveSignal(chan<- *dbus.Signal) { f.sigCh = nil }

func (f *fakeBus) AddMatchSignal(...dbus.MatchOption) error {
	f.matches++
	return nil
}

func (f *fakeBus) Close() error {
	f.closed = true
	return nil
}

func (f *fakeBus) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeObject 只实现后端用到的方法，其余方法由内嵌接口兜底
type fakeObject struct {
	dbus.BusObject
	bus  *fakeBus
	path dbus.ObjectPath
}

func (o *fakeObject) record(method string, args []interface{}) *dbus.Call {
	o.bus.mu.Lock()
	defer o.bus.mu.Unlock()

	o.bus.calls = append(o.bus.calls, fmt.Sprintf("%s %s", o.path, method))
	call := &dbus.Call{Path: o.path, Method: method, Args: args}
	if err, ok := o.bus.fail[method]; ok {
		call.Err = err
		return call
	}
	if method == propsGetAll {
		props, ok := o.bus.getAll[o.path]
		if !ok {
			call.Err = errors.New("no such object")
			return call
		}
		call.Body = []interface{}{props}
		return call
	}
	call.Body = o.bus.replies[method]
	return call
}

func (o *fakeObject) Call(method string, _ dbus.Flags, args ...interface{}) *dbus.Call {
	return o.record(method, args)
}

func (o *fakeObject) Go(method string, _ dbus.Flags, ch chan *dbus.Call, args ...interface{}) *dbus.Call {
	call := o.record(method, args)
	call.Done = ch
	ch <- call
	return call
}

func (o *fakeObject) GetProperty(p string) (dbus.Variant, error) {
	o.bus.mu.Lock()
	defer o.bus.mu.Unlock()
	if v, ok := o.bus.props[o.path][p]; ok {
		return v, nil
	}
	return dbus.Variant{}, errors.New("no such property")
}
