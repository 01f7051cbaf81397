// Package sample is a small IA client model served by the CLI and used in
// end-to-end tests. It covers every member kind the bridge handles:
// methods, read-only and writable properties, events, nested objects,
// an indexed collection and model construction.
package sample

import (
	"fmt"
	"sync"

	iabridge "github.com/wippyai/ia-bridge"
	"github.com/wippyai/ia-bridge/runtime"
)

// Connection states reported by Client.ConnectionState.
const (
	StateDisconnected = "Disconnected"
	StateConnecting   = "Connecting"
	StateConnected    = "Connected"
)

// Constructable model type IDs.
const (
	TypeLabel  = 1
	TypeMarker = 2
)

var modelTypes = []iabridge.ModelType{
	{TypeID: TypeLabel, TypeName: "Label"},
	{TypeID: TypeMarker, TypeName: "Marker"},
}

// Color is an RGBA color in the host's byte layout.
type Color struct {
	R uint8 `json:"rByte" mapstructure:"rByte"`
	G uint8 `json:"gByte" mapstructure:"gByte"`
	B uint8 `json:"bByte" mapstructure:"bByte"`
	A uint8 `json:"aByte" mapstructure:"aByte"`
}

// Client is the root object of the sample runtime.
type Client struct {
	ConnectionState string `ia:"readonly"`
	LobbyServerUri  string `ia:"readonly"`
	Room            *Room  `ia:"readonly"`
	Scene           *Scene `ia:"readonly"`
	UserName        string

	StateChanged         runtime.Event
	RoomChanged          runtime.Event
	RoomPasswordRequired runtime.Event

	mu      sync.Mutex
	rooms   map[string]*Room
	pending *Room
}

// Room is a lobby room.
type Room struct {
	Name    string `ia:"readonly"`
	Members int    `ia:"readonly"`

	password string
}

// Scene holds the visualizations of the joined room.
type Scene struct {
	Name           string
	Background     Color
	Visualizations *Visualizations `ia:"readonly"`

	Changed runtime.Event
}

// Visualizations is an indexed collection of scene items.
type Visualizations struct {
	Count int `ia:"readonly"`

	items []*Visualization
}

// Visualization is one constructed scene item.
type Visualization struct {
	Type    string `ia:"readonly"`
	Name    string
	Color   Color
	Visible bool

	Changed runtime.Event
}

// NewClient returns a disconnected client with an empty scene.
func NewClient() *Client {
	return &Client{
		ConnectionState: StateDisconnected,
		Scene: &Scene{
			Name:           "default",
			Background:     Color{A: 255},
			Visualizations: &Visualizations{},
		},
		rooms: make(map[string]*Room),
	}
}

// AddRoom registers a room that requires password to join.
// An empty password makes the room open.
func (c *Client) AddRoom(name, password string) *Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := &Room{Name: name, password: password}
	c.rooms[name] = r
	return r
}

func (c *Client) setState(state string) {
	c.ConnectionState = state
	c.StateChanged.Fire(state)
}

// ConnectToLobbyServer connects to the lobby at uri.
func (c *Client) ConnectToLobbyServer(uri string) error {
	if uri == "" {
		return fmt.Errorf("lobby server uri is empty")
	}
	c.LobbyServerUri = uri
	c.setState(StateConnecting)
	c.setState(StateConnected)
	return nil
}

// JoinOrCreateRoom joins the named room, creating it when it does not
// exist. Joining a protected room without the right password fires
// RoomPasswordRequired and returns nil.
func (c *Client) JoinOrCreateRoom(name, password string) (*Room, error) {
	if c.ConnectionState != StateConnected {
		return nil, fmt.Errorf("not connected")
	}
	if name == "" {
		return nil, fmt.Errorf("room name is empty")
	}

	c.mu.Lock()
	r, ok := c.rooms[name]
	if !ok {
		r = &Room{Name: name, password: password}
		c.rooms[name] = r
	}
	c.mu.Unlock()

	if r.password != "" && r.password != password {
		c.pending = r
		c.RoomPasswordRequired.Fire(name)
		return nil, nil
	}
	c.join(r)
	return r, nil
}

// ProvideRoomPassword retries the pending join with password.
func (c *Client) ProvideRoomPassword(password string) (bool, error) {
	r := c.pending
	if r == nil {
		return false, fmt.Errorf("no room is waiting for a password")
	}
	if r.password != password {
		c.RoomPasswordRequired.Fire(r.Name)
		return false, nil
	}
	c.pending = nil
	c.join(r)
	return true, nil
}

func (c *Client) join(r *Room) {
	if c.Room != nil {
		c.Room.Members--
	}
	r.Members++
	c.Room = r
	c.Scene.Name = r.Name
	c.RoomChanged.Fire(r)
	c.Scene.Changed.Fire("room")
}

// Disconnect leaves the current room and the lobby.
func (c *Client) Disconnect() {
	if c.Room != nil {
		c.Room.Members--
		c.Room = nil
		c.RoomChanged.Fire(nil)
	}
	c.pending = nil
	c.setState(StateDisconnected)
}

// GetConstructableModelTypes lists the models Create accepts.
func (c *Client) GetConstructableModelTypes() []iabridge.ModelType {
	out := make([]iabridge.ModelType, len(modelTypes))
	copy(out, modelTypes)
	return out
}

// Create constructs a model of typeID and adds it to the scene. The first
// argument, when present, names the item.
func (c *Client) Create(typeID int, args []any) (*Visualization, error) {
	var kind string
	for _, mt := range modelTypes {
		if mt.TypeID == typeID {
			kind = mt.TypeName
		}
	}
	if kind == "" {
		return nil, fmt.Errorf("unknown model type %d", typeID)
	}

	v := &Visualization{Type: kind, Visible: true, Color: Color{R: 255, G: 255, B: 255, A: 255}}
	if len(args) > 0 {
		name, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("model name must be a string, got %T", args[0])
		}
		v.Name = name
	}
	c.Scene.Visualizations.add(v)
	c.Scene.Changed.Fire("visualizations")
	return v, nil
}

func (s *Visualizations) add(v *Visualization) {
	s.items = append(s.items, v)
	s.Count = len(s.items)
}

// Item returns the visualization at index, or nil when out of range.
func (s *Visualizations) Item(index int) *Visualization {
	if index < 0 || index >= len(s.items) {
		return nil
	}
	return s.items[index]
}

// Find returns the first visualization named name.
func (s *Visualizations) Find(name string) *Visualization {
	for _, v := range s.items {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// SetVisible toggles the item and fires Changed.
func (v *Visualization) SetVisible(visible bool) {
	v.Visible = visible
	v.Changed.Fire(visible)
}
