package netease

import "github.com/liuran001/MusicProxy-Go/meting"

func init() {
	meting.MustRegister(providerName, func() meting.Provider { return New() })
}
