package svd

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// Raw SVD document shapes. Every scalar stays a string until conversion so
// that SVD number literals (#binary, scale suffixes) and absent elements can
// be handled uniformly.

type xmlProperties struct {
	Size       string `xml:"size"`
	Access     string `xml:"access"`
	ResetValue string `xml:"resetValue"`
	ResetMask  string `xml:"resetMask"`
}

type xmlDim struct {
	Dim          string `xml:"dim"`
	DimIncrement string `xml:"dimIncrement"`
	DimIndex     string `xml:"dimIndex"`
}

type xmlField struct {
	DerivedFrom string `xml:"derivedFrom,attr"`
	xmlDim
	Name        string `xml:"name"`
	Description string `xml:"description"`
	BitOffset   string `xml:"bitOffset"`
	BitWidth    string `xml:"bitWidth"`
	LSB         string `xml:"lsb"`
	MSB         string `xml:"msb"`
	BitRange    string `xml:"bitRange"`
	Access      string `xml:"access"`
}

type xmlRegister struct {
	DerivedFrom string `xml:"derivedFrom,attr"`
	xmlDim
	Name          string `xml:"name"`
	Description   string `xml:"description"`
	AddressOffset string `xml:"addressOffset"`
	xmlProperties
	Fields *struct {
		Field []xmlField `xml:"field"`
	} `xml:"fields"`
}

type xmlCluster struct {
	DerivedFrom string `xml:"derivedFrom,attr"`
	xmlDim
	Name          string `xml:"name"`
	Description   string `xml:"description"`
	AddressOffset string `xml:"addressOffset"`
	xmlProperties
	Register []xmlRegister `xml:"register"`
	Cluster  []xmlCluster  `xml:"cluster"`
}

type xmlPeripheral struct {
	DerivedFrom string `xml:"derivedFrom,attr"`
	Name        string `xml:"name"`
	Description string `xml:"description"`
	GroupName   string `xml:"groupName"`
	BaseAddress string `xml:"baseAddress"`
	xmlProperties
	Registers *struct {
		Register []xmlRegister `xml:"register"`
		Cluster  []xmlCluster  `xml:"cluster"`
	} `xml:"registers"`
}

type xmlDevice struct {
	XMLName     xml.Name `xml:"device"`
	Name        string   `xml:"name"`
	Description string   `xml:"description"`
	Version     string   `xml:"version"`
	xmlProperties
	Peripherals struct {
		Peripheral []xmlPeripheral `xml:"peripheral"`
	} `xml:"peripherals"`
}

// ParseSVD parses a CMSIS-SVD XML document.
func ParseSVD(data []byte) (*Device, error) {
	var raw xmlDevice
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing svd: %w", err)
	}
	dev, err := raw.convert()
	if err != nil {
		return nil, fmt.Errorf("parsing svd: %w", err)
	}
	return dev, nil
}

// LoadSVD loads and parses a CMSIS-SVD file.
func LoadSVD(path string) (*Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ParseSVD(data)
}

func (d *xmlDevice) convert() (*Device, error) {
	defaults, err := d.xmlProperties.convert()
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", d.Name, err)
	}
	dev := &Device{
		Name:             clean(d.Name),
		Description:      clean(d.Description),
		Version:          clean(d.Version),
		RegisterDefaults: defaults,
	}
	for i := range d.Peripherals.Peripheral {
		p, err := d.Peripherals.Peripheral[i].convert()
		if err != nil {
			return nil, err
		}
		dev.Peripherals = append(dev.Peripherals, p)
	}
	return dev, nil
}

func (p *xmlPeripheral) convert() (Peripheral, error) {
	out := Peripheral{
		Name:        clean(p.Name),
		Description: clean(p.Description),
		GroupName:   clean(p.GroupName),
		DerivedFrom: clean(p.DerivedFrom),
	}
	wrap := func(err error) error { return fmt.Errorf("peripheral %s: %w", out.Name, err) }

	var err error
	if out.BaseAddress, err = ParseNumber(p.BaseAddress); err != nil {
		return out, wrap(fmt.Errorf("baseAddress: %w", err))
	}
	if out.RegisterDefaults, err = p.xmlProperties.convert(); err != nil {
		return out, wrap(err)
	}
	if p.Registers != nil {
		if out.Clusters, err = convertClusters(p.Registers.Cluster); err != nil {
			return out, wrap(err)
		}
		if out.Registers, err = convertRegisters(p.Registers.Register); err != nil {
			return out, wrap(err)
		}
	}
	return out, nil
}

func convertClusters(raw []xmlCluster) ([]Cluster, error) {
	var out []Cluster
	for i := range raw {
		c, err := raw[i].convert()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func convertRegisters(raw []xmlRegister) ([]Register, error) {
	var out []Register
	for i := range raw {
		r, err := raw[i].convert()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *xmlCluster) convert() (Cluster, error) {
	out := Cluster{
		Name:        clean(c.Name),
		Description: clean(c.Description),
		DerivedFrom: clean(c.DerivedFrom),
	}
	wrap := func(err error) error { return fmt.Errorf("cluster %s: %w", out.Name, err) }

	var err error
	if out.AddressOffset, err = optionalNumber(c.AddressOffset); err != nil {
		return out, wrap(fmt.Errorf("addressOffset: %w", err))
	}
	if out.RegisterDefaults, err = c.xmlProperties.convert(); err != nil {
		return out, wrap(err)
	}
	if out.Dim, err = c.xmlDim.convert(); err != nil {
		return out, wrap(err)
	}
	if out.Clusters, err = convertClusters(c.Cluster); err != nil {
		return out, wrap(err)
	}
	if out.Registers, err = convertRegisters(c.Register); err != nil {
		return out, wrap(err)
	}
	return out, nil
}

func (r *xmlRegister) convert() (Register, error) {
	out := Register{
		Name:        clean(r.Name),
		Description: clean(r.Description),
		DerivedFrom: clean(r.DerivedFrom),
	}
	wrap := func(err error) error { return fmt.Errorf("register %s: %w", out.Name, err) }

	var err error
	if out.AddressOffset, err = optionalNumber(r.AddressOffset); err != nil {
		return out, wrap(fmt.Errorf("addressOffset: %w", err))
	}
	if out.RegisterDefaults, err = r.xmlProperties.convert(); err != nil {
		return out, wrap(err)
	}
	if out.Dim, err = r.xmlDim.convert(); err != nil {
		return out, wrap(err)
	}
	if r.Fields != nil {
		out.Fields = make([]Field, 0, len(r.Fields.Field))
		for i := range r.Fields.Field {
			f, err := r.Fields.Field[i].convert()
			if err != nil {
				return out, wrap(err)
			}
			out.Fields = append(out.Fields, f)
		}
	}
	return out, nil
}

func (f *xmlField) convert() (Field, error) {
	out := Field{
		Name:        clean(f.Name),
		Description: clean(f.Description),
		DerivedFrom: clean(f.DerivedFrom),
	}
	wrap := func(err error) error { return fmt.Errorf("field %s: %w", out.Name, err) }

	var err error
	if out.Access, err = ParseAccess(clean(f.Access)); err != nil {
		return out, wrap(err)
	}
	if out.BitOffset, out.BitWidth, err = f.bitRange(); err != nil {
		return out, wrap(err)
	}
	if out.Dim, err = f.xmlDim.convert(); err != nil {
		return out, wrap(err)
	}
	return out, nil
}

// bitRange resolves the three SVD bit position styles to offset and width.
func (f *xmlField) bitRange() (offset, width uint32, err error) {
	switch {
	case strings.TrimSpace(f.BitRange) != "":
		r := strings.TrimSpace(f.BitRange)
		if !strings.HasPrefix(r, "[") || !strings.HasSuffix(r, "]") {
			return 0, 0, fmt.Errorf("invalid bitRange %q", r)
		}
		msbStr, lsbStr, ok := strings.Cut(r[1:len(r)-1], ":")
		if !ok {
			return 0, 0, fmt.Errorf("invalid bitRange %q", r)
		}
		return fromLSBMSB(lsbStr, msbStr)
	case strings.TrimSpace(f.LSB) != "" || strings.TrimSpace(f.MSB) != "":
		return fromLSBMSB(f.LSB, f.MSB)
	default:
		o, err := ParseNumber(f.BitOffset)
		if err != nil {
			return 0, 0, fmt.Errorf("bitOffset: %w", err)
		}
		w := uint64(1)
		if strings.TrimSpace(f.BitWidth) != "" {
			if w, err = ParseNumber(f.BitWidth); err != nil {
				return 0, 0, fmt.Errorf("bitWidth: %w", err)
			}
		}
		return uint32(o), uint32(w), nil
	}
}

func fromLSBMSB(lsbStr, msbStr string) (uint32, uint32, error) {
	lsb, err := ParseNumber(lsbStr)
	if err != nil {
		return 0, 0, fmt.Errorf("lsb: %w", err)
	}
	msb, err := ParseNumber(msbStr)
	if err != nil {
		return 0, 0, fmt.Errorf("msb: %w", err)
	}
	if msb < lsb {
		return 0, 0, fmt.Errorf("msb %d below lsb %d", msb, lsb)
	}
	return uint32(lsb), uint32(msb - lsb + 1), nil
}

func (p *xmlProperties) convert() (RegisterDefaults, error) {
	var out RegisterDefaults
	if s := clean(p.Size); s != "" {
		v, err := ParseNumber(s)
		if err != nil {
			return out, fmt.Errorf("size: %w", err)
		}
		out.Size = U32(uint32(v))
	}
	if s := clean(p.ResetValue); s != "" {
		v, err := ParseNumber(s)
		if err != nil {
			return out, fmt.Errorf("resetValue: %w", err)
		}
		out.ResetValue = U64(v)
	}
	if s := clean(p.ResetMask); s != "" {
		v, err := ParseNumber(s)
		if err != nil {
			return out, fmt.Errorf("resetMask: %w", err)
		}
		out.ResetMask = U64(v)
	}
	a, err := ParseAccess(clean(p.Access))
	if err != nil {
		return out, err
	}
	out.Access = a
	return out, nil
}

func (d *xmlDim) convert() (*Dimension, error) {
	if clean(d.Dim) == "" {
		return nil, nil
	}
	count, err := ParseNumber(d.Dim)
	if err != nil {
		return nil, fmt.Errorf("dim: %w", err)
	}
	inc, err := optionalNumber(d.DimIncrement)
	if err != nil {
		return nil, fmt.Errorf("dimIncrement: %w", err)
	}
	idx, err := ParseDimIndex(d.DimIndex)
	if err != nil {
		return nil, err
	}
	if len(idx) > 0 && uint64(len(idx)) != count {
		return nil, fmt.Errorf("dimIndex has %d entries, dim is %d", len(idx), count)
	}
	return &Dimension{Count: uint32(count), Increment: inc, Indices: idx}, nil
}

func optionalNumber(s string) (uint64, error) {
	if clean(s) == "" {
		return 0, nil
	}
	return ParseNumber(s)
}

// clean collapses the whitespace SVD files routinely carry inside text
// elements, including line breaks within descriptions.
func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
