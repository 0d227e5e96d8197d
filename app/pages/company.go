package pages

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// color inputs open a react-color editor, each with its own editable input id
const (
	primaryColorEditor   = "rc-editable-input-1"
	secondaryColorEditor = "rc-editable-input-6"
)

// CompanyInfo is the editable part of the company information card
type CompanyInfo struct {
	AdminName    string
	AdminPhone   string
	Country      string
	Industry     string
	BusinessType string
	Address      string
}

// Company is the company details screen
type Company struct {
	kit
}

// OpenInfoEdit clicks the pencil of the "Company information" card
func (c *Company) OpenInfoEdit() error {
	return c.editCard("Company information")
}

// FillInfo fills the company form, empty values are left untouched. Admin name and phone are
// always written so a blank value can trigger validation.
func (c *Company) FillInfo(info CompanyInfo) error {
	if err := c.page.Locator(`input[name="adminName"]`).Fill(info.AdminName); err != nil {
		return fmt.Errorf("admin name: %w", err)
	}
	if err := c.page.Locator(`input[name="adminPhoneNumber"]`).Fill(info.AdminPhone); err != nil {
		return fmt.Errorf("admin phone: %w", err)
	}
	for _, dd := range [][2]string{{"Country", info.Country}, {"Industry", info.Industry}, {"Business Type", info.BusinessType}} {
		if dd[1] == "" {
			continue
		}
		if err := c.dropdown.SelectByClick(dd[0], dd[1]); err != nil {
			return err
		}
	}
	return c.fill([2]string{`textarea[name="address"]`, info.Address})
}

// Save submits the company form
func (c *Company) Save() error {
	return c.clickText("button", "Save changes")
}

// AdminNameError checks the inline admin name error is shown
func (c *Company) AdminNameError() bool {
	return visible(c.page.Locator("id=adminName-error"))
}

// editCard clicks the pencil button of the card titled by an h3
func (k kit) editCard(title string) error {
	card := k.page.Locator("div.text-card-foreground").Filter(playwright.LocatorFilterOptions{
		Has: k.page.Locator("h3", playwright.PageLocatorOptions{HasText: title}),
	})
	btn := card.Locator(`button:has(svg.lucide-pencil)`).First()
	if err := btn.WaitFor(waitVisible(10 * time.Second)); err != nil {
		return fmt.Errorf("edit %q: %w", title, err)
	}
	if err := btn.Click(); err != nil {
		return fmt.Errorf("edit %q: %w", title, err)
	}
	return nil
}

// Branding is the branding configuration card of the company screen
type Branding struct {
	kit
}

// BrandingData is what the branding form accepts, empty values are skipped
type BrandingData struct {
	LogoPath       string
	FaviconPath    string
	PrimaryColor   string
	SecondaryColor string
}

// OpenEdit clicks the pencil of the "Branding Configuration" card
func (b *Branding) OpenEdit() error {
	return b.editCard("Branding Configuration")
}

// RemoveLogo deletes the current customer logo
func (b *Branding) RemoveLogo() error {
	return b.removeImage("Customer Logo")
}

// RemoveFavicon deletes the current favicon
func (b *Branding) RemoveFavicon() error {
	return b.removeImage("Favicon")
}

// Fill uploads images and sets colors
func (b *Branding) Fill(d BrandingData) error {
	return b.setBranding(d)
}

// Save submits branding changes
func (b *Branding) Save() error {
	return b.clickText("button", "Save Changes")
}

func (b *Branding) removeImage(label string) error {
	container := b.page.Locator("label:text(" + strconv.Quote(label) + ")").
		Locator(`xpath=ancestor::div[contains(@class, "flex-1")]`).First()
	btn := container.Locator("button:has(svg.lucide-trash-2)").First()
	if err := btn.WaitFor(waitVisible(10 * time.Second)); err != nil {
		return fmt.Errorf("remove %s: %w", label, err)
	}
	if err := btn.Click(); err != nil {
		return fmt.Errorf("remove %s: %w", label, err)
	}
	return nil
}

// setBranding is shared by branding and customer forms
func (k kit) setBranding(d BrandingData) error {
	if d.LogoPath != "" {
		if err := k.files.Upload("customerLogo-upload", d.LogoPath); err != nil {
			return err
		}
	}
	if d.FaviconPath != "" {
		if err := k.files.Upload("favicon-upload", d.FaviconPath); err != nil {
			return err
		}
	}
	if d.PrimaryColor != "" {
		if err := k.setColor("primaryColor", primaryColorEditor, d.PrimaryColor); err != nil {
			return err
		}
	}
	if d.SecondaryColor != "" {
		if err := k.setColor("secondaryColor", secondaryColorEditor, d.SecondaryColor); err != nil {
			return err
		}
	}
	return nil
}

// setColor opens the color editor of the input and types the hex value
func (k kit) setColor(name, editorID, color string) error {
	input := k.page.Locator(`input[name=` + strconv.Quote(name) + `]`)
	if err := input.WaitFor(waitVisible(10 * time.Second)); err != nil {
		return fmt.Errorf("%s input: %w", name, err)
	}
	if err := input.Click(); err != nil {
		return fmt.Errorf("open %s editor: %w", name, err)
	}
	editor := k.page.Locator(`input[id=` + strconv.Quote(editorID) + `]`)
	if err := editor.WaitFor(waitVisible(10 * time.Second)); err != nil {
		return fmt.Errorf("%s editor: %w", name, err)
	}
	if err := editor.Fill(HexDigits(color)); err != nil {
		return fmt.Errorf("fill %s: %w", name, err)
	}
	return nil
}

// HexDigits strips the leading # of a color, the color editor wants bare digits
func HexDigits(color string) string {
	return strings.TrimPrefix(strings.TrimSpace(color), "#")
}

// PersonalInfo is the personal information card of the profile
type PersonalInfo struct {
	Name         string
	Phone        string
	PhotoPresent bool
}

// Profile is the user profile screen
type Profile struct {
	kit
}

// OpenEditPersonalInfo clicks the edit button of the "Personal Information" card
func (p *Profile) OpenEditPersonalInfo() error {
	card := p.page.Locator(`p:has-text("Personal Information")`).Locator("..").Locator("..")
	if err := card.Locator(`[data-slot="button"]`).First().Click(); err != nil {
		return fmt.Errorf("edit personal info: %w", err)
	}
	return nil
}

// EditPersonalInfo sets name and phone, replaces the photo when photoPath is set
func (p *Profile) EditPersonalInfo(name, phone, photoPath string) error {
	if err := p.page.Locator(`input[name="name"]`).Fill(name); err != nil {
		return fmt.Errorf("name: %w", err)
	}
	if err := p.page.Locator(`input[name="phone"]`).Fill(phone); err != nil {
		return fmt.Errorf("phone: %w", err)
	}
	if photoPath == "" {
		return nil
	}
	del := p.page.Locator(`label:has-text("Profile Photo")`).Locator("..").Locator("button:has(svg.lucide-trash2)").First()
	if visible(del) {
		if err := del.Click(); err != nil {
			return fmt.Errorf("remove photo: %w", err)
		}
	}
	return p.files.Upload("Profile Photo", photoPath)
}

// ClearName empties the name input
func (p *Profile) ClearName() error {
	return p.page.Locator(`input[name="name"]`).Fill("")
}

// SavePersonalInfo submits the card and waits for the confirmation
func (p *Profile) SavePersonalInfo() error {
	if err := p.clickText("button", "Save Changes"); err != nil {
		return err
	}
	if err := p.page.Locator("text=Profile updated successfully").First().WaitFor(waitVisible(8 * time.Second)); err != nil {
		return fmt.Errorf("profile update confirmation: %w", err)
	}
	return nil
}

// PersonalInfo reads name, phone and photo presence
func (p *Profile) PersonalInfo() (PersonalInfo, error) {
	name, err := p.page.Locator(`xpath=//span[contains(text(), "Full Name")]/following-sibling::span[1]`).First().TextContent()
	if err != nil {
		return PersonalInfo{}, fmt.Errorf("full name: %w", err)
	}
	phone, err := p.page.Locator(`xpath=//span[contains(text(), "Phone")]/following-sibling::span[1]`).First().TextContent()
	if err != nil {
		return PersonalInfo{}, fmt.Errorf("phone: %w", err)
	}
	return PersonalInfo{
		Name:         strings.TrimSpace(name),
		Phone:        strings.TrimSpace(phone),
		PhotoPresent: visible(p.page.Locator(`img[alt="Profile Photo"]`).First()),
	}, nil
}

// SaveDisabled checks the save button is disabled
func (p *Profile) SaveDisabled() bool {
	return p.IsDisabled(`button:has-text("Save Changes")`)
}

// ChangePassword opens the dialog, fills it and returns the confirmation text
func (p *Profile) ChangePassword(current, next, confirm string) (string, error) {
	if err := p.OpenChangePassword(); err != nil {
		return "", err
	}
	if err := p.FillPassword(current, next, confirm); err != nil {
		return "", err
	}
	return p.SavePassword()
}

// OpenChangePassword opens the change password dialog
func (p *Profile) OpenChangePassword() error {
	btn := p.page.Locator(`[data-slot="button"]`, playwright.PageLocatorOptions{HasText: "Change Password"}).First()
	if err := btn.WaitFor(waitVisible(5 * time.Second)); err != nil {
		return fmt.Errorf("change password button: %w", err)
	}
	return btn.Click()
}

// FillPassword sets the three password inputs
func (p *Profile) FillPassword(current, next, confirm string) error {
	for _, f := range [][2]string{{"currentPassword", current}, {"newPassword", next}, {"confirmPassword", confirm}} {
		if err := p.page.Locator(`input[name=` + strconv.Quote(f[0]) + `]`).Fill(f[1]); err != nil {
			return fmt.Errorf("fill %s: %w", f[0], err)
		}
	}
	return nil
}

// SavePassword submits the dialog and waits for the confirmation
func (p *Profile) SavePassword() (string, error) {
	btn := p.page.Locator(`[data-slot="button"]`, playwright.PageLocatorOptions{HasText: "Save Changes"}).Last()
	if err := btn.Click(); err != nil {
		return "", fmt.Errorf("save password: %w", err)
	}
	note := p.page.Locator("text=Password changed successfully").First()
	if err := note.WaitFor(waitVisible(8 * time.Second)); err != nil {
		return "", fmt.Errorf("password confirmation: %w", err)
	}
	s, err := note.TextContent()
	if err != nil {
		return "", fmt.Errorf("password confirmation: %w", err)
	}
	return strings.TrimSpace(s), nil
}

// SamePasswordErrors checks the errors of reusing the current password with empty confirmation
func (p *Profile) SamePasswordErrors() error {
	if err := p.page.Locator(`input[name="confirmPassword"]`).Fill(""); err != nil {
		return fmt.Errorf("clear confirmation: %w", err)
	}
	return p.ExpectErrors("New password must be different from current password", "Please confirm your password")
}
