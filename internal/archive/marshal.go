package archive

import (
	"encoding/json"

	"github.com/Anandhalagan/LIMS/pkg/types"
)

func marshalValues(res *types.Result) ([]byte, error) {
	data, err := json.Marshal(res.Values)
	if err != nil {
		return nil, types.NewSerializationError("failed to marshal result values", err)
	}
	return data, nil
}

func unmarshalValues(data []byte, res *types.Result) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &res.Values); err != nil {
		return types.NewSerializationError("failed to unmarshal result values", err)
	}
	return nil
}
