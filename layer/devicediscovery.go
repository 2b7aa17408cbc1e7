package layer

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/notify"
	"github.com/ChristofferGreen/pathspace/path"

	"github.com/google/uuid"
)

// deviceClassSynonyms maps a device class's singular request form to the
// plural directory name it's listed under, matching the original
// PathIODeviceDiscovery.hpp table exactly.
var deviceClassSynonyms = map[string]string{
	"mouse":    "mice",
	"keyboard": "keyboards",
	"gamepad":  "gamepads",
}

// DeviceInfo is one discovered input device.
type DeviceInfo struct {
	ID    string
	Class string
	Name  string
}

var deviceInfoType = reflect.TypeOf(DeviceInfo{})

// DeviceDiscovery is a C6 provider that lists attached devices by class
// at <mount>/<class-plural>/ and serves a flat "key=value\n" metadata
// blob per device at <mount>/<class-plural>/<id>/meta.
type DeviceDiscovery struct {
	prefix string

	mu      sync.Mutex
	byClass map[string][]DeviceInfo
}

func NewDeviceDiscovery() *DeviceDiscovery {
	return &DeviceDiscovery{byClass: make(map[string][]DeviceInfo)}
}

// Register announces a newly attached device of the given singular
// class ("mouse", "keyboard", "gamepad", ...), assigning it a fresh id.
func (d *DeviceDiscovery) Register(class, name string) DeviceInfo {
	plural := pluralize(class)
	info := DeviceInfo{ID: uuid.NewString(), Class: class, Name: name}

	d.mu.Lock()
	d.byClass[plural] = append(d.byClass[plural], info)
	d.mu.Unlock()

	return info
}

func pluralize(class string) string {
	if p, ok := deviceClassSynonyms[class]; ok {
		return p
	}
	return class + "s"
}

// meta renders a DeviceInfo as the flat key=value lines served at .../meta.
func meta(info DeviceInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "id=%s\n", info.ID)
	fmt.Fprintf(&b, "class=%s\n", info.Class)
	fmt.Fprintf(&b, "name=%s\n", info.Name)
	return b.String()
}

func (d *DeviceDiscovery) In(tail path.Iterator, value any, opts core.InOptions) InsertReturn {
	return InsertReturn{Errors: []error{core.New(core.CodeInvalidPermissions, "devicediscovery is read-only; use Register").WithPath(tail.Full())}}
}

func (d *DeviceDiscovery) Out(tail path.Iterator, want reflect.Type, opts core.Out) (any, error) {
	plural := tail.Component()

	if tail.AtFinalComponent() {
		d.mu.Lock()
		list := append([]DeviceInfo(nil), d.byClass[plural]...)
		d.mu.Unlock()
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		if want != deviceInfoType {
			return nil, core.ErrTypeMismatch
		}
		if len(list) == 0 {
			return nil, core.ErrNoObjectFound
		}
		return list, nil
	}

	next := tail.Next()
	id := next.Component()
	final := next.Next()
	if !final.AtFinalComponent() || final.Component() != "meta" {
		return nil, core.New(core.CodeNoSuchPath, "devicediscovery exposes only <class>/ and <class>/<id>/meta").WithPath(tail.Full())
	}
	if want != reflect.TypeOf("") {
		return nil, core.ErrTypeMismatch
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, info := range d.byClass[plural] {
		if info.ID == id {
			return meta(info), nil
		}
	}
	return nil, core.ErrNoObjectFound
}

func (d *DeviceDiscovery) Shutdown() {}
func (d *DeviceDiscovery) Notify(p string) {}
func (d *DeviceDiscovery) AdoptContextAndPrefix(bus *notify.Bus, prefix string) { d.prefix = prefix }
