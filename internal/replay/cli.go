package replay

import "io"

// ShowHelp prints usage information for the replay tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `coinsum replay
==============

Replays recorded detector output through the coin counting pipeline.

Usage:
  replay -recording frames.json [options]

Options:
  -recording string
        JSON recording: {"frames":[{"id","width","height","shape","transform","detections"}]}
  -url string
        Base URL of a running service; empty replays in process
  -stream string
        Stream id, or id prefix with -streams (default "replay")
  -streams int
        Concurrent copies of the recording sent to the service (default 1)
  -device string
        cpu or gpu, in process only (default "cpu")
  -conf float
        Confidence threshold (default 0.5)
  -iou float
        IoU threshold (default 0.4)
  -currency string
        Suffix for rendered totals (default "yen")
  -timeout duration
        HTTP request timeout (default 10s)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Replay in process on a simulated gpu
  replay -recording run.json -device gpu

  # Push four concurrent streams to a local service
  replay -recording run.json -url http://localhost:9080 -streams 4
`)
}
