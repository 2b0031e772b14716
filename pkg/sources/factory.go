package sources

import "fmt"

// New creates a Source based on kind and a generic configuration map.
// This is the central extension point for adding new source types.
//
// Supported kinds:
//   - "demo": DemoSource, synthetic generator
//   - "pos":  POSSource, generic HTTP point-of-sale adapter
func New(kind string, config map[string]string) (Source, error) {
	switch kind {
	case "demo":
		return newDemo(config), nil
	case "pos":
		return newPOS(config)
	default:
		return nil, fmt.Errorf("unknown source kind: %s (must be demo or pos)", kind)
	}
}

func newDemo(config map[string]string) *DemoSource {
	return &DemoSource{}
}

func newPOS(config map[string]string) (*POSSource, error) {
	url := config["url"]
	if url == "" {
		return nil, fmt.Errorf("pos source requires 'url' config")
	}

	timestampPath := config["timestampPath"]
	netSalesPath := config["netSalesPath"]
	if timestampPath == "" || netSalesPath == "" {
		return nil, fmt.Errorf("pos source requires 'timestampPath' and 'netSalesPath' config")
	}

	method := config["method"]
	if method == "" {
		method = "GET"
	}

	timestampFormat := config["timestampFormat"]
	if timestampFormat == "" {
		timestampFormat = "rfc3339"
	}

	return &POSSource{
		URL:             url,
		Method:          method,
		Body:            config["body"],
		TimestampPath:   timestampPath,
		NetSalesPath:    netSalesPath,
		TicketsPath:     config["ticketsPath"],
		TimestampFormat: timestampFormat,
	}, nil
}
