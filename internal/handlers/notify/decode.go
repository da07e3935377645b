package notify

import "github.com/mitchellh/mapstructure"

func decodePayload(data map[string]any, out any) error {
	return mapstructure.Decode(data, out)
}
