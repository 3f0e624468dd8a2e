// Package all registers every bundled music provider.
package all

import (
	_ "github.com/liuran001/MusicProxy-Go/plugins/netease"
	_ "github.com/liuran001/MusicProxy-Go/plugins/tencent"
)
