package navigator

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "navigator")
