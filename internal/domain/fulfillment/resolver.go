package fulfillment

// ResolveLine derives the status of a single line.
//
// An uncounted line is pending. Callers resolving raw quantities that were
// not produced by NewLine and Record must set Counted, or every line comes
// back pending. Otherwise branches are evaluated in order and
// the first match wins:
//
//  1. received == ordered, no damage, nothing missing: fulfilled
//  2. nothing received but damage or shortage recorded: damaged, or missing
//     when no damage was recorded (damaged wins when both are set)
//  3. short receipt, any damage or any shortage: partial
//  4. otherwise: pending
//
// Out-of-range quantities yield a *validation.InvalidInputError.
func ResolveLine(l Line) (LineStatus, error) {
	return resolveLine(0, l)
}

func resolveLine(idx int, l Line) (LineStatus, error) {
	if err := l.Validate(idx); err != nil {
		return "", err
	}
	if !l.Counted {
		return LinePending, nil
	}

	switch {
	case l.Received == l.Ordered && l.Damaged == 0 && l.Missing == 0:
		return LineFulfilled, nil
	case l.Received == 0 && (l.Damaged > 0 || l.Missing > 0):
		// Damaged takes priority when both are recorded.
		if l.Damaged > 0 {
			return LineDamaged, nil
		}
		return LineMissing, nil
	case l.Received < l.Ordered || l.Damaged > 0 || l.Missing > 0:
		return LinePartial, nil
	default:
		return LinePending, nil
	}
}

// ResolveLines resolves every line, failing on the first invalid one. The
// returned error identifies the offending line index.
func ResolveLines(lines []Line) ([]LineStatus, error) {
	statuses := make([]LineStatus, len(lines))
	for i, l := range lines {
		s, err := resolveLine(i, l)
		if err != nil {
			return nil, err
		}
		statuses[i] = s
	}
	return statuses, nil
}

// ResolveOrder derives the aggregate status of an order from its lines.
func ResolveOrder(lines []Line) (OrderStatus, error) {
	statuses, err := ResolveLines(lines)
	if err != nil {
		return "", err
	}
	return Aggregate(statuses), nil
}

// Aggregate summarizes resolved line statuses. An order without lines is
// Pending: it is never vacuously fulfilled.
func Aggregate(statuses []LineStatus) OrderStatus {
	if len(statuses) == 0 {
		return OrderPending
	}

	allFulfilled := true
	for _, s := range statuses {
		if s.IsDeviation() {
			return OrderPartiallyFulfilled
		}
		if s != LineFulfilled {
			allFulfilled = false
		}
	}
	if allFulfilled {
		return OrderFulfilled
	}
	return OrderPending
}
