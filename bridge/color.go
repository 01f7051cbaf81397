package bridge

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
)

// Color is an IA runtime color with byte channels.
type Color struct {
	R uint8 `mapstructure:"rByte"`
	G uint8 `mapstructure:"gByte"`
	B uint8 `mapstructure:"bByte"`
	A uint8 `mapstructure:"aByte"`
}

// CSS formats the color as a CSS rgba() value.
func (c Color) CSS() string {
	alpha := strconv.FormatFloat(float64(c.A)/255.0, 'f', -1, 64)
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, alpha)
}

// ColorToCSS converts a color value as returned by the runtime to CSS.
// A map or struct with rByte/gByte/bByte/aByte fields and a remote color
// object are both accepted. Nil or undecodable values yield "#000".
func ColorToCSS(ctx context.Context, v any) string {
	if v == nil {
		return "#000"
	}
	if obj, ok := v.(*RemoteObject); ok {
		fields := make(map[string]any, 4)
		for _, name := range []string{"rByte", "gByte", "bByte", "aByte"} {
			value, err := obj.Get(ctx, name)
			if err != nil {
				return "#000"
			}
			fields[name] = value
		}
		v = fields
	}
	var c Color
	if err := mapstructure.WeakDecode(v, &c); err != nil {
		return "#000"
	}
	return c.CSS()
}
