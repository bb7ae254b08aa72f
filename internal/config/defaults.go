package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	helperBinary           = "webview2-helper"
	helperProvider         = "webview2"
	notificationsPerMinute = 30
	notificationBurst      = 5
	uploadRegion           = "us-east-1"
)

var (
	downloadDir = xdg.UserDirs.Download
	stateDir    = filepath.Join(xdg.DataHome, appName)
)
