package ticket

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// categoryRule maps description keywords onto a family. Rules are evaluated
// in order and the first match wins, so the prepared-meals rule goes before
// the generic ones: "PIZZA ATUN" must not land in fish.
type categoryRule struct {
	keywords []string
	familyID int
}

var categoryRules = []categoryRule{
	// 15. Comidas preparadas
	{[]string{
		"BENTO", "SALMOREJO", "GAZPACHO", "TORTILLA PATATA", "FABADA",
		"ENSALADILLA", "CROQUETA", "ARROZ AL HORNO", "PIZZA", "COULANT",
		"CHILI CON CARNE", "CALDO COCIDO", "CALDO POLLO", "CALDO PESCADO",
		"ALITAS POLLO ASADAS", "TSATSIKI", "PATÉ",
	}, 15},
	// 1. Frutas y verduras
	{[]string{
		"AGUACATE", "AJO", "ALCACHOFA", "BANANA", "BROCOLI", "CALABACIN",
		"CEBOLLA", "CHAMPIÑON", "COLIFLOR", "ESPINACA", "FRESA", "KIWI",
		"LIMON", "MANDARINA", "MANZANA", "MELON", "NARANJA", "PATATA",
		"PEPINO", "PERA ", "PIMIENTO ROJO", "PIMIENTO FREIR", "PLATANO",
		"PLÁTANO", "PUERRO", "SANDÍA", "TOMATE CHERRY", "TOMATE RAMA",
		"TOMATE ENSALADA", "TOMATE PERA", "UVA", "ZANAHORIA", "CANONIGOS",
		"BERENJENA",
	}, 1},
	// 2. Carne y charcutería
	{[]string{
		"POLLO", "PECHUGA", "MUSLO", "FILETE", "TERNERA", "CERDO",
		"CORDERO", "LOMO", "COSTILLA", "CHULETA", "HAMBURGUESA", "BURGER",
		"SALCHICHA", "CHORIZO", "JAMON", "JAMÓN", "FUET", "BACON",
		"PANCETA", "PAVO ", "SOLOMILLO", "MORCILLA", "PACK-4 SALCH",
	}, 2},
	// 3. Pescado y marisco
	{[]string{
		"SALMON", "SALMÓN", "ATÚN", "ATUN ", "MERLUZA", "BACALAO",
		"DORADA", "LUBINA", "SARDINA", "ANCHOA", "GAMBA", "LANGOSTINO",
		"MEJILLON", "MEJILLÓN", "CALAMAR", "PULPO", "SEPIA", "GALERA",
		"PESCADO", "MARISCO", "SURIMI",
	}, 3},
	// 4. Lácteos y huevos
	{[]string{
		"LECHE ENTERA", "LECHE SEMI", "LECHE S/LACT", "YOGUR", "GRIEGO",
		"QUESO", "MANTEQUILLA", "NATA ", "HUEVO", "KEFIR", "CUAJADA",
		"MOZZARELLA", "NATILLA", "FLAN", "BATIDO",
	}, 4},
	// 5. Pan y bollería
	{[]string{
		"PAN ", "BARRA", "BAGUETTE", "CHAPATA", "HOGAZA", "PAN MOLDE",
		"CRUASAN", "CROISSANT", "MAGDALENA", "NAPOLITANA", "ENSAIMADA",
	}, 5},
	// 6. Conservas y legumbres
	{[]string{
		"LENTEJA", "GARBANZO", "ALUBIA", "JUDION", "ATUN CLARO",
		"TOMATE TRITURADO", "TOMATE TROCEADO", "HUMMUS", "ACEITUNA S/HUESO",
		"PEPINILLO", "BANDERILLAS", "PIMIENTO ASADO", "PISTO", "ALCAPARRAS",
	}, 6},
	// 7. Pasta, arroz y cereales
	{[]string{
		"SPAGHETTI", "ESPAGUETI", "MACARRON", "TALLARÍN", "LASAÑA",
		"NOODLES", "PENNE", "ARROZ BOMBA", "ARROZ BASMATI", "ARROZ REDONDO",
		"COUS COUS", "QUINOA", "MUESLI", "MAIZ PALOMITAS",
	}, 7},
	// 8. Aceites, salsas y condimentos
	{[]string{
		"ACEITE GIRASOL", "ACEITE OLIVA", "VINAGRE ", "MAYONESA",
		"KETCHUP", "MOSTAZA", "SALSA DE SOJA", "TOMATE FRITO", "AZUCAR",
		"AZÚCAR", "LECHE DE COCO",
	}, 8},
	// 9. Snacks y dulces
	{[]string{
		"NACHOS", "PALOMITAS", "CHICLE", "GOLOSINA", "MERMELADA",
		"SNACK PIPAS", "CREMA AVELLANA", "SURTIDO TURR", "TORTITAS ARROZ",
	}, 9},
	// 10. Bebidas
	{[]string{
		"AGUA ", "CERVEZA", "VINO", "ZUMO", "REFRESCO", "COLA ",
		"TÓNICA", "TONICA", "CAFÉ", "CAFE ", "INFUSION", "TE ",
	}, 10},
	// 11. Congelados
	{[]string{
		"HELADO", "HIELO CUBITO", "GUISANTES MUY TIERNO",
		"HABITAS MUY TIERNAS", "FIGURITAS MERLUZA", "MINI CONO NATA",
	}, 11},
	// 12. Droguería y limpieza
	{[]string{
		"DETERGENTE", "SUAVIZANTE", "LAVAVAJILLAS", "LEJIA", "LEJÍA",
		"AMONIACO", "BAYETA", "ESTROPAJO", "FREGASUELOS", "BOLSA BASURA",
	}, 12},
	// 13. Higiene y cuidado personal
	{[]string{
		"PAPEL HIGIÉNICO", "PAPEL HIGIENICO", "GEL ", "CHAMPU", "CHAMPÚ",
		"DESODORANTE", "DENTIFRICO", "DENTÍFRICO", "CEPILLO", "COMPRESA",
		"PAÑUELO",
	}, 13},
	// 14. Otras
	{[]string{
		"CARBÓN VEGETAL", "PARKING", "FOSFOROS MADERA",
	}, 14},
}

// matchFamily returns the family for a product description, first matching
// rule wins.
func matchFamily(description string) (int, bool) {
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(description, kw) {
				return rule.familyID, true
			}
		}
	}
	return 0, false
}

// AutoCategorize assigns a family to every uncategorized catalog product
// whose description matches a keyword rule. Products no rule covers are
// left for manual categorization. Returns the number of products assigned.
func (s *Service) AutoCategorize() (int, error) {
	products, err := s.db.ListProducts()
	if err != nil {
		return 0, fmt.Errorf("listing products: %w", err)
	}

	assigned := 0
	for _, p := range products {
		if p.FamilyID != 0 {
			continue
		}
		familyID, ok := matchFamily(p.Description)
		if !ok {
			continue
		}
		family, err := s.db.GetFamily(familyID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return assigned, fmt.Errorf("getting family: %w", err)
		}
		p.FamilyID = familyID
		if err := s.db.SaveProduct(p); err != nil {
			return assigned, fmt.Errorf("saving product: %w", err)
		}
		slog.Debug("Product categorized", "product", p.Description, "family", family.Name)
		assigned++
	}
	return assigned, nil
}
