// Package ffmpeg wraps the external ffmpeg/ffprobe binaries used for
// video probing and the fade transform.
package ffmpeg
