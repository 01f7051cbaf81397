package sample

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/ia-bridge/bridge"
	"github.com/wippyai/ia-bridge/runtime"
)

func TestClient_Rooms(t *testing.T) {
	c := NewClient()
	c.AddRoom("vault", "secret")

	if _, err := c.JoinOrCreateRoom("lobby", ""); err == nil {
		t.Error("join before connect should fail")
	}
	if err := c.ConnectToLobbyServer("ws://lobby"); err != nil {
		t.Fatal(err)
	}

	r, err := c.JoinOrCreateRoom("open", "")
	if err != nil || r == nil || c.Room != r || r.Members != 1 {
		t.Fatalf("JoinOrCreateRoom(open) = %v, %v", r, err)
	}

	r, err = c.JoinOrCreateRoom("vault", "wrong")
	if err != nil || r != nil {
		t.Fatalf("protected join = %v, %v, want nil, nil", r, err)
	}
	if ok, _ := c.ProvideRoomPassword("still wrong"); ok {
		t.Error("wrong password accepted")
	}
	if ok, err := c.ProvideRoomPassword("secret"); !ok || err != nil {
		t.Fatalf("ProvideRoomPassword = %v, %v", ok, err)
	}
	if c.Room.Name != "vault" || c.rooms["open"].Members != 0 {
		t.Errorf("room = %q, open members = %d", c.Room.Name, c.rooms["open"].Members)
	}

	c.Disconnect()
	if c.Room != nil || c.ConnectionState != StateDisconnected {
		t.Errorf("after Disconnect: room %v, state %q", c.Room, c.ConnectionState)
	}
}

func TestClient_Create(t *testing.T) {
	c := NewClient()

	v, err := c.Create(TypeMarker, []any{"pin"})
	if err != nil {
		t.Fatal(err)
	}
	if v.Type != "Marker" || v.Name != "pin" || c.Scene.Visualizations.Count != 1 {
		t.Errorf("unexpected visualization %+v", v)
	}
	if c.Scene.Visualizations.Item(0) != v || c.Scene.Visualizations.Item(1) != nil {
		t.Error("Item lookup mismatch")
	}
	if c.Scene.Visualizations.Find("pin") != v {
		t.Error("Find lookup mismatch")
	}

	if _, err := c.Create(99, nil); err == nil {
		t.Error("unknown type should fail")
	}
	if _, err := c.Create(TypeLabel, []any{3}); err == nil {
		t.Error("non-string name should fail")
	}
}

func TestClient_OverBridge(t *testing.T) {
	rt, err := runtime.New(NewClient())
	if err != nil {
		t.Fatal(err)
	}
	defer rt.Close()

	sess := rt.NewSession()
	b := bridge.New(sess, bridge.WithTickInterval(5*time.Millisecond), bridge.WithDeliveryMode(bridge.DeliverAll))
	sess.Attach(b)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	client, err := b.CreateClient(ctx)
	if err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}

	var names []string
	for _, mt := range client.ModelTypes() {
		names = append(names, mt.TypeName)
	}
	if diff := cmp.Diff([]string{"Label", "Marker"}, names); diff != "" {
		t.Errorf("model types mismatch (-want +got):\n%s", diff)
	}

	states := make(chan any, 8)
	unsub, err := client.Subscribe(ctx, "stateChanged", func(args ...any) { states <- args[0] })
	if err != nil {
		t.Fatal(err)
	}
	defer unsub()

	if _, err := client.Invoke(ctx, "connectToLobbyServer", "ws://lobby"); err != nil {
		t.Fatal(err)
	}
	var got []any
	for len(got) < 2 {
		select {
		case s := <-states:
			got = append(got, s)
		case <-ctx.Done():
			t.Fatalf("state events not delivered, got %v", got)
		}
	}
	if diff := cmp.Diff([]any{StateConnecting, StateConnected}, got); diff != "" {
		t.Errorf("state events mismatch (-want +got):\n%s", diff)
	}

	if err := client.SetProperty(ctx, "connectionState", "Hacked"); err == nil {
		t.Error("writing a read-only property should fail")
	}

	item, err := client.Create(ctx, "Label", "title")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	label, ok := item.(*bridge.RemoteObject)
	if !ok {
		t.Fatalf("Create returned %T, want *bridge.RemoteObject", item)
	}
	if name, _ := label.Get(ctx, "name"); name != "title" {
		t.Errorf("name = %v, want title", name)
	}

	scene, err := client.Get(ctx, "scene")
	if err != nil {
		t.Fatal(err)
	}
	vis, err := scene.(*bridge.RemoteObject).Get(ctx, "visualizations")
	if err != nil {
		t.Fatal(err)
	}
	first, err := vis.(*bridge.RemoteObject).Index(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if first.(*bridge.RemoteObject).ID() != label.ID() {
		t.Errorf("indexed item %v, want %v", first.(*bridge.RemoteObject).ID(), label.ID())
	}

	if err := label.SetProperty(ctx, "color", map[string]any{"rByte": 10, "gByte": 20, "bByte": 30, "aByte": 255}); err != nil {
		t.Fatal(err)
	}
	color, err := label.Get(ctx, "color")
	if err != nil {
		t.Fatal(err)
	}
	if css := bridge.ColorToCSS(ctx, color); css != "rgba(10,20,30,1)" {
		t.Errorf("ColorToCSS = %q", css)
	}
}
