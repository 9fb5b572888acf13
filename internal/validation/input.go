package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MinUsernameLength       = 3
	MaxUsernameLength       = 30
	MinDisplayNameLength    = 2
	MaxDisplayNameLength    = 100
	MinJobTitleLength       = 3
	MaxJobTitleLength       = 200
	MinJobDescriptionLength = 10
	MaxJobDescriptionLength = 5000
	MaxCoverLetterLength    = 2000
	MaxBioLength            = 1000
	MaxLocationLength       = 100
	MaxSkillLength          = 50
	MaxSkillsCount          = 50
	MaxDisputeReasonLength  = 2000
	MaxFeedbackLength       = 2000
	MaxSummaryLength        = 5000
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart, domainPart := parts[0], parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	localRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !localRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	usernameRegex := regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}

	if unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}

	return nil
}

// ValidateDisplayName проверяет отображаемое имя.
func ValidateDisplayName(displayName string) error {
	if displayName == "" {
		return fmt.Errorf("отображаемое имя обязательно")
	}
	return ValidateLength("отображаемое имя", strings.TrimSpace(displayName), MinDisplayNameLength, MaxDisplayNameLength)
}

// ValidateJobTitle проверяет заголовок заявки.
func ValidateJobTitle(title string) error {
	if err := ValidateNonEmpty("заголовок", title); err != nil {
		return err
	}
	return ValidateLength("заголовок", strings.TrimSpace(title), MinJobTitleLength, MaxJobTitleLength)
}

// ValidateJobDescription проверяет описание заявки.
func ValidateJobDescription(description string) error {
	if err := ValidateNonEmpty("описание", description); err != nil {
		return err
	}
	return ValidateLength("описание", strings.TrimSpace(description), MinJobDescriptionLength, MaxJobDescriptionLength)
}

// ValidateSkills проверяет список навыков.
func ValidateSkills(skills []string) error {
	if len(skills) > MaxSkillsCount {
		return fmt.Errorf("навыков не может быть более %d", MaxSkillsCount)
	}
	for _, skill := range skills {
		if err := ValidateLength("навык", skill, 1, MaxSkillLength); err != nil {
			return err
		}
	}
	return nil
}
