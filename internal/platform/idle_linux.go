package platform

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/screensaver"
	"github.com/jezek/xgb/xproto"

	"github.com/pilgrimlyieu/Focust-sub001/internal/core/scheduler"
)

// x11IdleProvider queries the MIT-SCREEN-SAVER extension for the time since
// the last user input.
type x11IdleProvider struct {
	conn *xgb.Conn
	root xproto.Drawable
}

// xprintidleProvider shells out to xprintidle. It also covers Wayland
// compositors that ship an XWayland-aware xprintidle.
type xprintidleProvider struct {
	path string
}

type unsupportedIdleProvider struct{}

func newIdleProvider() IdleProvider {
	sessionType := strings.ToLower(os.Getenv("XDG_SESSION_TYPE"))
	if sessionType != "wayland" {
		if provider, err := newX11IdleProvider(); err == nil {
			return provider
		}
	}
	if path, err := exec.LookPath("xprintidle"); err == nil {
		return &xprintidleProvider{path: path}
	}
	return unsupportedIdleProvider{}
}

func newX11IdleProvider() (*x11IdleProvider, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}
	if err := screensaver.Init(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init screensaver extension: %w", err)
	}
	root := xproto.Setup(conn).DefaultScreen(conn).Root
	return &x11IdleProvider{conn: conn, root: xproto.Drawable(root)}, nil
}

func (provider *x11IdleProvider) IdleDuration() (time.Duration, error) {
	info, err := screensaver.QueryInfo(provider.conn, provider.root).Reply()
	if err != nil {
		return 0, fmt.Errorf("query screensaver info: %w", err)
	}
	return time.Duration(info.MsSinceUserInput) * time.Millisecond, nil
}

func (provider *xprintidleProvider) IdleDuration() (time.Duration, error) {
	output, err := exec.Command(provider.path).Output()
	if err != nil {
		return 0, fmt.Errorf("xprintidle: %w", err)
	}
	value := strings.TrimSpace(string(output))
	idleMillis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse idle milliseconds: %w", err)
	}
	if idleMillis < 0 {
		idleMillis = 0
	}
	return time.Duration(idleMillis) * time.Millisecond, nil
}

func (unsupportedIdleProvider) IdleDuration() (time.Duration, error) {
	return 0, scheduler.ErrIdleUnsupported
}
