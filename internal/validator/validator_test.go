package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ValidatorSuite struct {
	suite.Suite
	validator *Validator
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func (s *ValidatorSuite) SetupTest() {
	v, err := New()
	s.Require().NoError(err)
	s.validator = v
}

func (s *ValidatorSuite) TestNew() {
	s.Run("invalid pattern rejected at construction", func() {
		_, err := New(WithInjectionRules([]Rule{{Name: "broken", Pattern: `([`}}))
		s.Error(err)
	})

	s.Run("custom catalogue replaces defaults", func() {
		v, err := New(WithInjectionRules([]Rule{{Name: "drop_table", Pattern: `(?i)drop\s+table`}}))
		s.Require().NoError(err)
		s.Empty(v.DetectInjectionPatterns("eval(1)"))
		s.Len(v.DetectInjectionPatterns("DROP TABLE users"), 1)
	})
}

func (s *ValidatorSuite) TestSanitize() {
	s.Run("strips script blocks including content", func() {
		out := s.validator.Sanitize("hello <script>alert(1)</script> world")
		s.NotContains(out, "alert")
		s.NotContains(out, "<script>")
	})

	s.Run("strips residual markup", func() {
		s.Equal("bold", s.validator.Sanitize("<b>bold</b>"))
	})

	s.Run("truncates to maximum length", func() {
		out := s.validator.Sanitize(strings.Repeat("a", 5000))
		s.Len(out, DefaultMaxLength)
	})

	s.Run("trims surrounding whitespace", func() {
		s.Equal("query", s.validator.Sanitize("  query  "))
	})
}

func (s *ValidatorSuite) TestDetectInjectionPatterns() {
	s.Run("script tag reported", func() {
		findings := s.validator.DetectInjectionPatterns("<script>alert(1)</script>")
		s.NotEmpty(findings)
		s.Equal("script_tag", findings[0].Rule)
	})

	s.Run("eval call reported", func() {
		s.NotEmpty(s.validator.DetectInjectionPatterns("eval(1)"))
	})

	s.Run("benign text clean", func() {
		s.Empty(s.validator.DetectInjectionPatterns("hello world"))
	})

	s.Run("one finding per matching rule", func() {
		findings := s.validator.DetectInjectionPatterns(`<script>eval(1)</script> javascript:void(0)`)
		s.Len(findings, 3)
	})
}

func (s *ValidatorSuite) TestDetectSensitiveInfo() {
	s.Run("ssn shape flagged", func() {
		findings := s.validator.DetectSensitiveInfo("my ssn is 123-45-6789")
		s.Require().NotEmpty(findings)
		s.Equal("ssn", findings[0].Rule)
	})

	s.Run("card shape flagged", func() {
		s.NotEmpty(s.validator.DetectSensitiveInfo("4111 1111 1111 1111"))
	})

	s.Run("email flagged", func() {
		findings := s.validator.DetectSensitiveInfo("reach me at a@b.com")
		s.Require().Len(findings, 1)
		s.Equal("email", findings[0].Rule)
	})

	s.Run("plain text clean", func() {
		s.Empty(s.validator.DetectSensitiveInfo("tell me about course registration"))
	})
}

func (s *ValidatorSuite) TestValidate() {
	s.Run("empty query unsafe", func() {
		safe, warnings := s.validator.Validate("")
		s.False(safe)
		s.Equal([]string{"empty query"}, warnings)
	})

	s.Run("whitespace only unsafe", func() {
		safe, _ := s.validator.Validate("   ")
		s.False(safe)
	})

	s.Run("injection fails closed", func() {
		safe, warnings := s.validator.Validate("eval(payload)")
		s.False(safe)
		s.NotEmpty(warnings)
	})

	s.Run("sensitive info warns but stays safe", func() {
		safe, warnings := s.validator.Validate("my email is a@b.com")
		s.True(safe)
		s.Len(warnings, 1)
		s.Contains(warnings[0], "sensitive")
	})

	s.Run("benign query safe with no warnings", func() {
		safe, warnings := s.validator.Validate("what events are on this week?")
		s.True(safe)
		s.Empty(warnings)
	})
}
