package memcload

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sanity-io/litter"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"

	"github.com/G-Research/memcload/internal/memcload/convert"
)

var dumper = litter.Options{Compact: true, StripPackageNames: true}

// CheckLines are encoded by Check when no lines are given
var CheckLines = []string{
	"idfa\t1rfw452y52g2gq4g\t55.55\t42.42\t1423,43,567,3,7,23",
	"gaid\t7rfw452y52g2gq4g\t55.55\t42.42\t7423,424",
}

// Check parses, encodes and decodes every line and verifies that the decoded value matches the parsed record
func Check(lines []string) error {
	var result *multierror.Error
	for _, line := range lines {
		record, err := convert.ParseLine(line)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		entry, err := convert.Encode(record)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		decoded, err := convert.Decode(entry.Value)
		if err != nil {
			result = multierror.Append(result, errors.WithMessagef(err, "error decoding %s", entry.Key))
			continue
		}
		if !slices.Equal(decoded.Apps, record.Apps) || decoded.Lat != record.Lat || decoded.Lon != record.Lon {
			result = multierror.Append(result, errors.Errorf("%s decoded as %s", entry.Key, decoded))
			continue
		}
		log.WithField("bytes", len(entry.Value)).Infof("%s -> %s", entry.Key, dumper.Sdump(decoded))
	}
	return result.ErrorOrNil()
}
