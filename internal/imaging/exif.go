package imaging

import (
	"io"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// EXIF holds the readable tags of a photo and its decoded GPS position.
type EXIF struct {
	Data      map[string]string `json:"exif_data"`
	HasGPS    bool              `json:"has_gps"`
	Latitude  *float64          `json:"latitude"`
	Longitude *float64          `json:"longitude"`
}

// ReadEXIF extracts metadata from r. A file without EXIF yields an empty
// result, not an error.
func ReadEXIF(r io.Reader) EXIF {
	out := EXIF{Data: map[string]string{}}
	x, err := exif.Decode(r)
	if err != nil || x == nil {
		return out
	}
	_ = x.Walk(collector(out.Data))

	lat, latOK := gpsCoordinate(x, exif.GPSLatitude, exif.GPSLatitudeRef, "S")
	lon, lonOK := gpsCoordinate(x, exif.GPSLongitude, exif.GPSLongitudeRef, "W")
	if latOK && lonOK {
		out.HasGPS = true
		out.Latitude = &lat
		out.Longitude = &lon
	}
	return out
}

type collector map[string]string

func (c collector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag == nil {
		return nil
	}
	if s, err := tag.StringVal(); err == nil {
		c[string(name)] = strings.TrimRight(s, "\x00 ")
		return nil
	}
	c[string(name)] = strings.Trim(tag.String(), `"`)
	return nil
}

func gpsCoordinate(x *exif.Exif, field, refField exif.FieldName, negativeRef string) (float64, bool) {
	tag, err := x.Get(field)
	if err != nil {
		return 0, false
	}
	var dms [3]float64
	for i := range dms {
		num, den, err := tag.Rat2(i)
		if err != nil || den == 0 {
			return 0, false
		}
		dms[i] = float64(num) / float64(den)
	}
	ref := ""
	if refTag, err := x.Get(refField); err == nil {
		ref, _ = refTag.StringVal()
	}
	return DMSToDecimal(dms[0], dms[1], dms[2], ref, negativeRef), true
}

// DMSToDecimal converts degrees/minutes/seconds to decimal degrees,
// negated when ref starts with negativeRef ("S" or "W").
func DMSToDecimal(deg, minutes, seconds float64, ref, negativeRef string) float64 {
	v := deg + minutes/60 + seconds/3600
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(ref)), negativeRef) {
		v = -v
	}
	return v
}
