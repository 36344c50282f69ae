package engine

import (
	"strings"

	offerstepdomain "github.com/planhaus/planhaus/internal/offerstep/domain"
	"gorm.io/datatypes"
)

// BuildJobData merges the offer's step data into the job description the
// engine consumes. Every recognized field gets a documented default when
// absent so the engine never sees a missing key. Some deployments split the
// same fields across differently named steps (performanta vs
// performantaEnergetica, logistica vs conditiiSantier); later variants
// override earlier ones on collision.
func BuildJobData(steps []offerstepdomain.OfferStep) datatypes.JSONMap {
	byKey := map[string]datatypes.JSONMap{}
	for _, s := range steps {
		byKey[s.StepKey] = s.Data
	}

	dg := section(byKey, "dateGenerale")
	client := section(byKey, "client")
	sist := section(byKey, "sistemConstructiv")
	mat := section(byKey, "materialeFinisaj")
	perf := merge(section(byKey, "performanta"), section(byKey, "performantaEnergetica"))
	logistics := merge(section(byKey, "logistica"), section(byKey, "conditiiSantier"))

	return datatypes.JSONMap{
		"referinta": str(dg, "referinta", "Proiect Standard"),
		"client": datatypes.JSONMap{
			"nume":       str(client, "nume", ""),
			"telefon":    str(client, "telefon", ""),
			"email":      str(client, "email", ""),
			"localitate": str(client, "localitate", ""),
		},
		"sistemConstructiv": datatypes.JSONMap{
			"tipSistem":        str(sist, "tipSistem", "Holzrahmen"),
			"gradPrefabricare": str(sist, "gradPrefabricare", "Panouri"),
			"tipFundatie":      str(sist, "tipFundatie", "Placă"),
			"tipAcoperis":      str(sist, "tipAcoperis", "Două ape"),
			"materialPereti":   str(sist, "materialPereti", ""),
		},
		"materialeFinisaj": datatypes.JSONMap{
			"nivelOferta":          str(mat, "nivelOferta", "Structură + ferestre"),
			"finisajInterior":      str(mat, "finisajInterior", "Tencuială"),
			"fatada":               str(mat, "fatada", "Tencuială"),
			"tamplarie":            str(mat, "tamplarie", "PVC"),
			"materialAcoperis":     str(mat, "materialAcoperis", "Țiglă"),
			"tipTermoizolatie":     str(mat, "tipTermoizolatie", ""),
			"grosimeTermoizolatie": num(mat, "grosimeTermoizolatie", 0),
			"invelitoare":          str(mat, "invelitoare", ""),
		},
		"performanta": datatypes.JSONMap{
			"nivelEnergetic": firstStr(perf, []string{"nivelEnergetic", "clasaEnergetica"}, "KfW 55"),
			"incalzire":      str(perf, "incalzire", "Pompa de căldură"),
			"ventilatie":     ventilatie(perf["ventilatie"]),
		},
		"logistica": datatypes.JSONMap{
			"accesSantier": str(logistics, "accesSantier", "Ușor (camion 40t)"),
			"teren":        str(logistics, "teren", "Plan"),
			"utilitati":    truthy(logistics["utilitati"]),
		},
	}
}

func section(byKey map[string]datatypes.JSONMap, key string) datatypes.JSONMap {
	if m, ok := byKey[key]; ok && m != nil {
		return m
	}
	return datatypes.JSONMap{}
}

func merge(a, b datatypes.JSONMap) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func str(m datatypes.JSONMap, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

func firstStr(m datatypes.JSONMap, keys []string, def string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && v != "" {
			return v
		}
	}
	return def
}

func num(m datatypes.JSONMap, key string, def float64) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// ventilatie accepts booleans, string booleans, and legacy free-text values
// mentioning heat recovery.
func ventilatie(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || strings.Contains(t, "recuperare")
	}
	return false
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "false"
	case float64:
		return t != 0
	case nil:
		return false
	}
	return true
}
