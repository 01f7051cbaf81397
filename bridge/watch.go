package bridge

import (
	"context"

	"go.uber.org/zap"
)

// WatchProperty reports the current value of property on obj and again every
// time event fires. A read failure is reported as nil. The returned
// Unsubscribe stops watching.
func WatchProperty(ctx context.Context, obj *RemoteObject, property, event string, fn func(value any)) (Unsubscribe, error) {
	read := func(ctx context.Context) any {
		v, err := obj.GetProperty(ctx, property)
		if err != nil {
			obj.bridge.log.Debug("watched property read failed",
				zap.String("object", obj.ID()), zap.String("property", property), zap.Error(err))
			return nil
		}
		return v
	}

	unsubscribe, err := obj.Subscribe(ctx, event, func(...any) {
		ctx, cancel := context.WithTimeout(context.Background(), obj.bridge.opts.callTimeout)
		defer cancel()
		fn(read(ctx))
	})
	if err != nil {
		return nil, err
	}
	fn(read(ctx))
	return unsubscribe, nil
}
