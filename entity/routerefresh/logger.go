package routerefresh

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "routerefresh")
