package normalizer

import (
	_ "embed"
	"encoding/json"

	"github.com/sumochan15/agentworkflow/pkg/log"
)

//go:embed data/sumo_dictionary.json
var dictionaryData []byte

// Dictionary is the static reading dictionary: sumo vocabulary, winning
// techniques and organization names, keyed by surface form.
type Dictionary struct {
	Terms         map[string]string `json:"terms"`
	Techniques    map[string]string `json:"techniques"`
	Organizations map[string]string `json:"organizations"`
}

func loadDictionary() Dictionary {
	var dict Dictionary
	if err := json.Unmarshal(dictionaryData, &dict); err != nil {
		// Keep working with an empty dictionary rather than failing startup.
		log.Warn("Failed to parse embedded dictionary, starting empty: %v", err)
	}
	if dict.Terms == nil {
		dict.Terms = make(map[string]string)
	}
	if dict.Techniques == nil {
		dict.Techniques = make(map[string]string)
	}
	if dict.Organizations == nil {
		dict.Organizations = make(map[string]string)
	}
	return dict
}

func (d Dictionary) size() int {
	return len(d.Terms) + len(d.Techniques) + len(d.Organizations)
}

// merge copies every dictionary section into dst.
func (d Dictionary) merge(dst map[string]string) {
	for k, v := range d.Terms {
		dst[k] = v
	}
	for k, v := range d.Techniques {
		dst[k] = v
	}
	for k, v := range d.Organizations {
		dst[k] = v
	}
}
