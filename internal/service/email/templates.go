package email

const welcomeTemplate = `
<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; color: #333; margin: 0; padding: 0; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; }
  .header { background-color: #1e3a5f; color: white; padding: 24px; text-align: center; border-radius: 8px 8px 0 0; }
  .content { background-color: #f9f9f9; padding: 24px; border-radius: 0 0 8px 8px; }
  .button { display: inline-block; background-color: #2e86de; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin-top: 16px; }
  .footer { text-align: center; font-size: 12px; color: #999; margin-top: 24px; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Welcome to LaundroTech</h1>
  </div>
  <div class="content">
    <p>Hi {{.UserName}},</p>
    <p>Your account is ready. You can now analyze any laundromat location:
    enter an address, get a free preview with a grade and market score, then
    pick the report depth that fits your decision.</p>
    <p>Your free Location Scout previews are unlimited. Paid tiers unlock
    competitor intelligence, revenue projections, and real-time market
    monitoring.</p>
    <a href="{{.BaseURL}}/analyze" class="button">Analyze your first location</a>
  </div>
  <div class="footer">
    <p>LaundroTech Location Intelligence &middot; You received this email because you signed up at {{.BaseURL}}</p>
  </div>
</div>
</body>
</html>
`

const purchaseReceiptTemplate = `
<!DOCTYPE html>
<html>
<head>
<style>
  body { font-family: Arial, sans-serif; color: #333; margin: 0; padding: 0; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; }
  .header { background-color: #1e3a5f; color: white; padding: 24px; text-align: center; border-radius: 8px 8px 0 0; }
  .content { background-color: #f9f9f9; padding: 24px; border-radius: 0 0 8px 8px; }
  .receipt { background-color: white; border: 1px solid #e0e0e0; border-radius: 4px; padding: 16px; margin: 16px 0; }
  .receipt table { width: 100%; border-collapse: collapse; }
  .receipt td { padding: 6px 0; }
  .receipt td.label { color: #777; width: 40%; }
  .total { font-size: 18px; font-weight: bold; border-top: 1px solid #e0e0e0; }
  .footer { text-align: center; font-size: 12px; color: #999; margin-top: 24px; }
</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>Your report is ready</h1>
  </div>
  <div class="content">
    <p>Hi {{.UserName}},</p>
    <p>Thanks for your purchase. Your <strong>{{.TierName}}</strong> analysis
    for <strong>{{.Address}}</strong> is available in your dashboard.</p>
    <div class="receipt">
      <table>
        <tr><td class="label">Receipt</td><td>{{.PurchaseID}}</td></tr>
        <tr><td class="label">Report tier</td><td>{{.TierName}}</td></tr>
        <tr><td class="label">Location</td><td>{{.Address}}</td></tr>
        <tr><td class="label">Billing</td><td>{{.Billing}}</td></tr>
        <tr><td class="label total">Total</td><td class="total">${{.Amount}} {{.Currency}}</td></tr>
      </table>
    </div>
    <p><a href="{{.BaseURL}}/sessions/{{.SessionID}}">View your full report</a></p>
  </div>
  <div class="footer">
    <p>LaundroTech Location Intelligence &middot; Questions? Reply to this email.</p>
  </div>
</div>
</body>
</html>
`
