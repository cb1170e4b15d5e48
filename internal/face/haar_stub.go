//go:build !gocv

package face

import "errors"

func loadHaar(string, DetectorParams) (Locator, error) {
	return nil, errors.New("haar detector requires a build with -tags gocv")
}
