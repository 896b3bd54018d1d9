package directions

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "directions")
