package convert

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/G-Research/memcload/internal/memcload/model"
	"github.com/G-Research/memcload/pkg/appsinstalled"
)

const (
	fieldSeparator = "\t"
	appSeparator   = ","
	numFields      = 5
)

// ErrMalformedLine is returned when a line cannot be turned into a record
type ErrMalformedLine struct {
	Line   string
	Reason string
}

func (err *ErrMalformedLine) Error() string {
	return fmt.Sprintf("malformed line %q: %s", err.Line, err.Reason)
}

// ParseLine parses a single tab separated line of the form
//
//	devType \t devId \t lat \t lon \t app1,app2,...
//
// The line must already be trimmed and non-empty.
// An app list that is only partly numeric keeps its numeric entries and invalid coordinates are
// replaced with zero; both cases are logged but do not invalidate the record.
func ParseLine(line string) (*model.AppsInstalled, error) {
	parts := strings.Split(line, fieldSeparator)
	if len(parts) != numFields {
		return nil, &ErrMalformedLine{Line: line, Reason: fmt.Sprintf("expected %d fields, got %d", numFields, len(parts))}
	}
	devType, devId, rawLat, rawLon, rawApps := parts[0], parts[1], parts[2], parts[3], parts[4]
	if devType == "" || devId == "" {
		return nil, &ErrMalformedLine{Line: line, Reason: "device type and id must not be empty"}
	}

	apps, complete := parseApps(rawApps)
	if len(apps) == 0 {
		return nil, &ErrMalformedLine{Line: line, Reason: "no numeric apps"}
	}
	if !complete {
		log.Infof("Not all user apps are digits: `%s`", line)
	}

	lat, latErr := strconv.ParseFloat(strings.TrimSpace(rawLat), 64)
	lon, lonErr := strconv.ParseFloat(strings.TrimSpace(rawLon), 64)
	if latErr != nil || lonErr != nil {
		log.Infof("Invalid geo coords: `%s`", line)
		if latErr != nil {
			lat = 0
		}
		if lonErr != nil {
			lon = 0
		}
	}

	return &model.AppsInstalled{
		DevType: devType,
		DevId:   devId,
		Lat:     lat,
		Lon:     lon,
		Apps:    apps,
	}, nil
}

// parseApps returns every app id that parses as a uint32 and whether all tokens did
func parseApps(raw string) ([]uint32, bool) {
	tokens := strings.Split(raw, appSeparator)
	apps := make([]uint32, 0, len(tokens))
	complete := true
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if !isDigits(token) {
			complete = false
			continue
		}
		app, err := strconv.ParseUint(token, 10, 32)
		if err != nil {
			complete = false
			continue
		}
		apps = append(apps, uint32(app))
	}
	return apps, complete
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Encode turns a record into the key/value pair stored in the cache
func Encode(record *model.AppsInstalled) (*model.Entry, error) {
	ua := &appsinstalled.UserApps{
		Apps: record.Apps,
		Lat:  record.Lat,
		Lon:  record.Lon,
	}
	packed, err := proto.Marshal(ua)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &model.Entry{Key: record.Key(), Value: packed}, nil
}

// Decode parses a cached value back into its UserApps message
func Decode(value []byte) (*appsinstalled.UserApps, error) {
	ua := &appsinstalled.UserApps{}
	if err := proto.Unmarshal(value, ua); err != nil {
		return nil, errors.WithStack(err)
	}
	return ua, nil
}
