//go:build headless

package preview

// OpenDevice returns a SilentDevice in headless builds.
func OpenDevice(sampleRate, _ int) (Device, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return SilentDevice{SampleRate: sampleRate}, nil
}
