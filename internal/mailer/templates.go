package mailer

import (
	"bytes"
	"html/template"

	"litoarte-backend/config"

	"litoarte-backend/internal/models"
)

type templateData struct {
	Order   *models.Order
	Company config.CompanyConfig
	Date    string
}

var customerTmpl = template.Must(template.New("cliente").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; }
  .header { background: #6366f1; color: white; padding: 30px 20px; text-align: center; }
  .pedido-box { background: white; border: 2px solid #e5e7eb; border-radius: 8px; padding: 20px; margin: 20px 0; }
  .total { font-size: 24px; font-weight: bold; color: #6366f1; text-align: center; margin: 20px 0; }
  .estado { background: #d1fae5; color: #065f46; padding: 10px; border-radius: 4px; text-align: center; font-weight: bold; }
  .footer { text-align: center; padding: 20px; font-size: 14px; color: #666; border-top: 1px solid #e5e7eb; }
</style>
</head>
<body>
<div class="container">
  <div class="header"><h1>&iexcl;Gracias por tu pedido!</h1></div>
  <h2>Hola {{.Order.CustomerName}},</h2>
  <p>Tu pedido ha sido confirmado y est&aacute; siendo procesado. Te mantendremos informado sobre el progreso.</p>
  <div class="pedido-box">
    <h3>Detalles del Pedido</h3>
    <p><strong>N&uacute;mero de Pedido:</strong> {{.Order.OrderNumber}}</p>
    <p><strong>Fecha:</strong> {{.Date}}</p>
    <p><strong>Producto:</strong> {{.Order.ProductName}}</p>
    {{if .Order.LithophaneCount}}<p><strong>Litofan&iacute;as:</strong> {{.Order.LithophaneCount}}</p>{{end}}
    {{if gt .Order.Quantity 1}}<p><strong>Cantidad:</strong> {{.Order.Quantity}}</p>{{end}}
    <p><strong>Plazo de entrega:</strong> {{.Order.DeliveryDays}} d&iacute;as</p>
    {{if .Order.Extras}}
    <p><strong>Extras:</strong></p>
    <ul>
      {{range .Order.Extras}}<li>{{.Name}}: {{printf "%.2f" .Price}}&euro;</li>{{end}}
    </ul>
    {{end}}
    <p>Precio base: {{printf "%.2f" .Order.BasePrice}}&euro;<br>
       Extras: {{printf "%.2f" .Order.ExtrasPrice}}&euro;
       {{if gt .Order.Discount 0.0}}<br>Descuento: -{{printf "%.2f" .Order.Discount}}&euro;{{end}}</p>
    <div class="total">Total: {{printf "%.2f" .Order.TotalPrice}}&euro;</div>
    <div class="estado">{{if .Order.Paid}}PAGADO{{else}}PENDIENTE DE PAGO{{end}}</div>
  </div>
  <p>Si tienes alguna pregunta sobre tu pedido, cont&aacute;ctanos en {{.Company.Email}} o {{.Company.Phone}}
     mencionando tu n&uacute;mero de pedido.</p>
  <div class="footer">
    <p><strong>{{.Company.Name}}</strong></p>
    <p>Transformamos tus recuerdos en luz</p>
  </div>
</div>
</body>
</html>`))

var companyTmpl = template.Must(template.New("empresa").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
  .container { max-width: 700px; margin: 0 auto; padding: 20px; }
  .alert { background: #fef3c7; border-left: 6px solid #f59e0b; padding: 20px; margin: 20px 0; }
  .info-box { background: #f3f4f6; border-radius: 8px; padding: 20px; margin: 15px 0; }
  .total-box { background: #6366f1; color: white; padding: 20px; text-align: center; border-radius: 8px; }
  .amount { font-size: 32px; font-weight: bold; }
</style>
</head>
<body>
<div class="container">
  <div class="alert">
    <h2>NUEVO PEDIDO RECIBIDO</h2>
    <p>Pedido: <strong>{{.Order.OrderNumber}}</strong></p>
  </div>
  <div class="total-box">
    <div>IMPORTE TOTAL</div>
    <div class="amount">{{printf "%.2f" .Order.TotalPrice}}&euro;</div>
    <div>Estado: {{if .Order.Paid}}PAGADO{{else}}PENDIENTE{{end}}</div>
  </div>
  <div class="info-box">
    <h3>Datos del Cliente</h3>
    <p>Nombre: {{.Order.CustomerName}} {{.Order.CustomerSurname}}<br>
       Email: {{.Order.CustomerEmail}}<br>
       Tel&eacute;fono: {{.Order.CustomerPhone}}<br>
       Newsletter: {{if .Order.Newsletter}}S&iacute;{{else}}No{{end}}</p>
  </div>
  <div class="info-box">
    <h3>Producto</h3>
    <p>Producto: {{.Order.ProductName}} ({{.Order.ProductType}})<br>
       Cantidad: {{.Order.Quantity}}<br>
       {{if .Order.LithophaneCount}}Litofan&iacute;as: {{.Order.LithophaneCount}}<br>{{end}}
       Plazo: {{.Order.DeliveryDays}} d&iacute;as</p>
    {{if .Order.Extras}}
    <p>Extras:
      {{range $i, $e := .Order.Extras}}{{if $i}}, {{end}}{{$e.Name}} ({{printf "%.2f" $e.Price}}&euro;){{end}}
    </p>
    {{else}}<p>Extras: Ninguno</p>{{end}}
  </div>
  <div class="info-box">
    <h3>Desglose</h3>
    <p>Base: {{printf "%.2f" .Order.BasePrice}}&euro;<br>
       Extras: {{printf "%.2f" .Order.ExtrasPrice}}&euro;<br>
       {{if gt .Order.Discount 0.0}}Descuento: -{{printf "%.2f" .Order.Discount}}&euro;<br>{{end}}
       TOTAL: {{printf "%.2f" .Order.TotalPrice}}&euro;</p>
  </div>
  <div class="info-box">
    <h3>Informaci&oacute;n Adicional</h3>
    <p>Fecha del pedido: {{.Date}}<br>
       Estado: {{.Order.Status}}
       {{if .Order.SessionID}}<br>Stripe Session: {{.Order.SessionID}}{{end}}</p>
  </div>
  <p><strong>Acci&oacute;n requerida:</strong> Revisa el pedido y contacta al cliente para confirmar
     los detalles de las fotos y la entrega.</p>
</div>
</body>
</html>`))

func renderCustomerHTML(order *models.Order, company config.CompanyConfig) (string, error) {
	return render(customerTmpl, order, company)
}

func renderCompanyHTML(order *models.Order, company config.CompanyConfig) (string, error) {
	return render(companyTmpl, order, company)
}

func render(tmpl *template.Template, order *models.Order, company config.CompanyConfig) (string, error) {
	var buf bytes.Buffer
	data := templateData{
		Order:   order,
		Company: company,
		Date:    order.CreatedAt.Format("02/01/2006 15:04"),
	}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
