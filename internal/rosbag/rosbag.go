// Package rosbag replays sensor_msgs/Image messages recorded in a ROS bag as frames.
package rosbag

import (
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	gobag "github.com/edaniels/gobag/rosbag"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/SyedDaiam9101/tl-detector/internal/frame"
)

// DefaultTopic is the camera topic the perception stack subscribes to.
const DefaultTopic = "/image_color"

// ErrNoMessages is returned when the bag holds nothing on the requested topic.
var ErrNoMessages = errors.New("no messages for topic")

// imageMessage is one JSON line of a parsed sensor_msgs/Image topic.
type imageMessage struct {
	Meta struct {
		Secs  int64
		Nsecs int64
	}
	Data struct {
		Header struct {
			Seq     uint32
			FrameID string `json:"frame_id"`
		}
		Height   int
		Width    int
		Encoding string
		Step     int
		Data     []byte
	}
}

// Image is a decoded camera frame and when it was recorded.
type Image struct {
	Seq     uint32
	FrameID string
	Stamp   time.Time
	Frame   *frame.Frame
}

// ReadBag reads the contents of a rosbag into a gobag data structure.
func ReadBag(filename string) (rb *gobag.RosBag, err error) {
	//nolint:gosec
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open input file")
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	rb = gobag.NewRosBag()
	if err := rb.Read(f); err != nil {
		return nil, errors.Wrapf(err, "unable to read ros bag %s", filename)
	}
	return rb, nil
}

// TopicKey is the name gobag files a topic's messages under: no leading
// slash, remaining slashes turned into underscores, lower case.
func TopicKey(topic string) string {
	topic = strings.TrimPrefix(topic, "/")
	return strings.ToLower(strings.ReplaceAll(topic, "/", "_"))
}

// EachImage decodes every message on topic in recording order and hands it to fn.
// A non-nil error from fn stops the walk and is returned.
func EachImage(rb *gobag.RosBag, topic string, fn func(Image) error) error {
	if err := rb.ParseTopicsToJSON(
		"",
		func(int64) bool { return true },
		func(t string) bool { return t == topic },
		false,
	); err != nil {
		return errors.Wrapf(err, "error while parsing bag to JSON")
	}

	msgs := rb.TopicsAsJSON[TopicKey(topic)]
	if msgs == nil {
		return errors.Wrapf(ErrNoMessages, "%s", topic)
	}

	for {
		line, err := msgs.ReadBytes('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		img, err := DecodeImage(line)
		if err != nil {
			return err
		}
		if err := fn(img); err != nil {
			return err
		}
	}
}

// DecodeImage turns one parsed sensor_msgs/Image JSON line into a frame.
func DecodeImage(line []byte) (Image, error) {
	var msg imageMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return Image{}, errors.Wrap(err, "malformed image message")
	}
	d := msg.Data
	f, err := frame.FromRaw(d.Width, d.Height, d.Step, d.Encoding, d.Data)
	if err != nil {
		return Image{}, errors.Wrapf(err, "image seq %d", d.Header.Seq)
	}
	return Image{
		Seq:     d.Header.Seq,
		FrameID: d.Header.FrameID,
		Stamp:   time.Unix(msg.Meta.Secs, msg.Meta.Nsecs),
		Frame:   f,
	}, nil
}
