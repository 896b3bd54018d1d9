package reroute

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "reroute")
