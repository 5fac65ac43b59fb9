package handlers

// User-facing error copy. English is authoritative; Arabic mirrors it for
// the studio's Gulf clientele.
var errorMessages = map[string]map[string]string{
	"en": {
		"bad_request":       "The request is malformed.",
		"invalid_file_type": "Only image uploads are accepted.",
		"file_too_large":    "The image exceeds the 10 MiB limit.",
		"invalid_email":     "The email address is not valid.",
		"invalid_room_type": "Unknown room type.",
		"invalid_style":     "Unknown design style.",
		"invalid_rating":    "Rating must be between 1 and 5.",
		"token_expired":     "This link has expired. Submit a new redesign request to get a fresh one.",
		"not_found":         "No result matches this link.",
		"not_ready":         "The result is not ready for feedback yet.",
		"internal":          "Something went wrong on our side. Please try again.",
	},
	"ar": {
		"bad_request":       "الطلب غير صالح.",
		"invalid_file_type": "نقبل تحميل الصور فقط.",
		"file_too_large":    "حجم الصورة يتجاوز الحد المسموح به (10 ميغابايت).",
		"invalid_email":     "البريد الإلكتروني غير صالح.",
		"invalid_room_type": "نوع الغرفة غير معروف.",
		"invalid_style":     "نمط التصميم غير معروف.",
		"invalid_rating":    "التقييم يجب أن يكون بين 1 و 5.",
		"token_expired":     "انتهت صلاحية هذا الرابط. أرسل طلب تصميم جديدًا للحصول على رابط جديد.",
		"not_found":         "لا توجد نتيجة مطابقة لهذا الرابط.",
		"not_ready":         "النتيجة ليست جاهزة للتقييم بعد.",
		"internal":          "حدث خطأ من جهتنا. حاول مرة أخرى.",
	},
}

func localizedMessage(locale, code string) string {
	if msgs, ok := errorMessages[locale]; ok {
		if msg, ok := msgs[code]; ok {
			return msg
		}
	}
	if msg, ok := errorMessages["en"][code]; ok {
		return msg
	}
	return errorMessages["en"]["internal"]
}
