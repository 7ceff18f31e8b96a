package operational

// PDTType is the form code of a tax declaration
type PDTType string

const (
	PDT601   PDTType = "PDT_601"
	PDT616   PDTType = "PDT_616"
	PDT617   PDTType = "PDT_617"
	PDT621   PDTType = "PDT_621"
	PDT709   PDTType = "PDT_709"
	PDT710   PDTType = "PDT_710"
	PDTOther PDTType = "OTHER"
)

var pdtDisplay = map[PDTType]string{
	PDT601:   "PDT 601",
	PDT616:   "PDT 616",
	PDT617:   "PDT 617",
	PDT621:   "PDT 621",
	PDT709:   "PDT 709",
	PDT710:   "PDT 710",
	PDTOther: "Otro",
}

// IsValidMonthly reports whether t may be filed against a monthly declaration
func (t PDTType) IsValidMonthly() bool {
	_, ok := pdtDisplay[t]
	return ok && t != PDTOther
}

// IsValidAdditional reports whether t may be used for an additional PDT
func (t PDTType) IsValidAdditional() bool {
	_, ok := pdtDisplay[t]
	return ok
}

// Display returns the human readable form name
func (t PDTType) Display() string {
	if s, ok := pdtDisplay[t]; ok {
		return s
	}
	return string(t)
}

// DeclarationStatus is the processing state of a filing
type DeclarationStatus string

const (
	StatusPending   DeclarationStatus = "pending"
	StatusPresented DeclarationStatus = "presented"
	StatusObserved  DeclarationStatus = "observed"
	StatusAccepted  DeclarationStatus = "accepted"
)

func (s DeclarationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusPresented, StatusObserved, StatusAccepted:
		return true
	}
	return false
}

// Display returns the Spanish label
func (s DeclarationStatus) Display() string {
	switch s {
	case StatusPending:
		return "Pendiente"
	case StatusPresented:
		return "Presentada"
	case StatusObserved:
		return "Observada"
	case StatusAccepted:
		return "Aceptada"
	}
	return string(s)
}
