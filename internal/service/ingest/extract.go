package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/outreach-engine/internal/domain"
)

// registrationDateLayout is the register's dd.MM.yyyy date format.
const registrationDateLayout = "02.01.2006"

// Register identifiers as used by the extract endpoint and its header.
const (
	RegisterBusiness     = "P" // entrepreneurs
	RegisterAssociations = "S" // associations and foundations
)

var registerCodes = map[string]string{
	"RejP": RegisterBusiness,
	"RejS": RegisterAssociations,
}

type extractEnvelope struct {
	Odpis json.RawMessage `json:"odpis"`
}

type extract struct {
	NaglowekA struct {
		Rejestr             string `json:"rejestr"`
		NumerKRS            string `json:"numerKRS"`
		DataRejestracjiWKRS string `json:"dataRejestracjiWKRS"`
	} `json:"naglowekA"`
	Dane struct {
		Dzial1 struct {
			DanePodmiotu              *entityData `json:"danePodmiotu"`
			DanePodmiotuZagranicznego *entityData `json:"danePodmiotuZagranicznego"`
			SiedzibaIAdres            struct {
				AdresPocztyElektronicznej string `json:"adresPocztyElektronicznej"`
			} `json:"siedzibaIAdres"`
		} `json:"dzial1"`
		Dzial3 struct {
			PrzedmiotDzialalnosci struct {
				Przewazajacej []activityCode `json:"przedmiotPrzewazajacejDzialalnosci"`
			} `json:"przedmiotDzialalnosci"`
		} `json:"dzial3"`
	} `json:"dane"`
}

type entityData struct {
	Nazwa       string `json:"nazwa"`
	FormaPrawna string `json:"formaPrawna"`
}

type activityCode struct {
	Opis        string `json:"opis"`
	KodDzial    string `json:"kodDzial"`
	KodKlasa    string `json:"kodKlasa"`
	KodPodklasa string `json:"kodPodklasa"`
}

func (a activityCode) code() string {
	var parts []string
	for _, p := range []string{a.KodDzial, a.KodKlasa, a.KodPodklasa} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ".")
}

// parseExtract converts an extract response into a company. It returns
// (nil, nil) when the response carries no extract. Missing or malformed
// fields are left zero for the caller to filter.
func parseExtract(data []byte, register string) (*domain.RegistryCompany, error) {
	var env extractEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode extract: %w", err)
	}
	if len(env.Odpis) == 0 || string(env.Odpis) == "null" {
		return nil, nil
	}
	var x extract
	if err := json.Unmarshal(env.Odpis, &x); err != nil {
		return nil, fmt.Errorf("decode extract body: %w", err)
	}

	c := &domain.RegistryCompany{
		RegistryNumber: strings.TrimSpace(x.NaglowekA.NumerKRS),
		Registry:       register,
		Email:          strings.ToLower(strings.TrimSpace(x.Dane.Dzial1.SiedzibaIAdres.AdresPocztyElektronicznej)),
		Raw:            env.Odpis,
	}
	if code, ok := registerCodes[x.NaglowekA.Rejestr]; ok {
		c.Registry = code
	}
	if c.RegistryNumber != "" {
		c.RegistryNumber = padNumber(c.RegistryNumber)
	}
	switch {
	case x.Dane.Dzial1.DanePodmiotu != nil && x.Dane.Dzial1.DanePodmiotu.Nazwa != "":
		c.Name = strings.TrimSpace(x.Dane.Dzial1.DanePodmiotu.Nazwa)
	case x.Dane.Dzial1.DanePodmiotuZagranicznego != nil:
		c.Name = strings.TrimSpace(x.Dane.Dzial1.DanePodmiotuZagranicznego.Nazwa)
	}
	if d := strings.TrimSpace(x.NaglowekA.DataRejestracjiWKRS); d != "" {
		if t, err := time.Parse(registrationDateLayout, d); err == nil {
			c.RegisteredAt = t
		}
	}
	for _, a := range x.Dane.Dzial3.PrzedmiotDzialalnosci.Przewazajacej {
		code, name := a.code(), strings.TrimSpace(a.Opis)
		if code == "" || name == "" {
			continue
		}
		c.Categories = append(c.Categories, domain.Category{Code: code, Name: name})
	}
	return c, nil
}

// padNumber left-pads a register number with zeros to ten digits.
func padNumber(n string) string {
	n = strings.TrimSpace(n)
	if len(n) >= 10 {
		return n
	}
	return strings.Repeat("0", 10-len(n)) + n
}
