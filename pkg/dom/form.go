package dom

// ResetForm empties every user-editable control under form. Hidden inputs
// (anti-forgery tokens) and buttons keep their values.
func ResetForm(form Element) {
	if form == nil {
		return
	}
	for _, control := range form.FindAll(Controls()) {
		switch control.Tag() {
		case "textarea":
			control.SetValue("")
		case "select":
			control.SetValue("")
		case "input":
			switch control.Type() {
			case "hidden", "submit", "button", "reset", "image":
			case "checkbox", "radio":
				control.SetChecked(false)
			case "file":
				control.SetFiles(nil)
			default:
				control.SetValue("")
			}
		}
	}
}

// IsTextual reports whether el accepts free text.
func IsTextual(el Element) bool {
	if el == nil {
		return false
	}
	switch el.Tag() {
	case "textarea":
		return true
	case "input":
		switch el.Type() {
		case "checkbox", "radio", "file", "hidden", "submit", "button", "reset", "image":
			return false
		default:
			return true
		}
	default:
		return false
	}
}
