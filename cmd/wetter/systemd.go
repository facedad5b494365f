package main

import (
	"errors"
	"fmt"
	"os"
)

const systemdServiceTemplate = `[Unit]
Description=Update of wetter cli tool using systemd
Wants=wetter.timer

[Service]
Type=oneshot
ExecStart=/usr/bin/wetter update
User=%s

[Install]
WantedBy=multi-user.target
`

const systemdTimer = `[Unit]
Description=Update of wetter cli tool using systemd

[Timer]
OnCalendar=*-*-* *:05:05

[Install]
WantedBy=timers.target
`

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("USERNAME")
}

func systemdService(user string) (string, error) {
	if user == "" {
		return "", errors.New("please define the USER environment variable to set up systemd")
	}
	return fmt.Sprintf(systemdServiceTemplate, user), nil
}
